package tuple

// Filter selects tuples for TupleStore.List / TupleStore.Delete. All fields
// are optional and ANDed together; Or holds a disjunction of sub-filters
// that is ANDed with the rest of the fields set on Filter itself.
type Filter struct {
	ObjectTypeEq    ObjectType
	ObjectIDEq      string
	ObjectIDIn      []string
	RelationEq      Relation
	UserTypeEq      ObjectType
	UserIDEq        string
	UserIDIn        []string
	UserRelationEq  Relation
	UserRelationNil bool
	Or              []Filter
}

// Matches reports whether k satisfies the filter. It is the reference
// predicate used by store/memstore and by any adapter that must filter
// tuples outside of a query language (e.g. a row scan).
func (f Filter) Matches(k Key) bool {
	if f.ObjectTypeEq != "" && k.ObjectType != f.ObjectTypeEq {
		return false
	}
	if f.ObjectIDEq != "" && k.ObjectID != f.ObjectIDEq {
		return false
	}
	if len(f.ObjectIDIn) > 0 && !containsString(f.ObjectIDIn, k.ObjectID) {
		return false
	}
	if f.RelationEq != "" && k.Relation != f.RelationEq {
		return false
	}
	if f.UserTypeEq != "" && k.UserType != f.UserTypeEq {
		return false
	}
	if f.UserIDEq != "" && k.UserID != f.UserIDEq {
		return false
	}
	if len(f.UserIDIn) > 0 && !containsString(f.UserIDIn, k.UserID) {
		return false
	}
	if f.UserRelationEq != "" && k.UserRelation != f.UserRelationEq {
		return false
	}
	if f.UserRelationNil && k.UserRelation != "" {
		return false
	}
	if len(f.Or) > 0 {
		matched := false
		for _, sub := range f.Or {
			if sub.Matches(k) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Page requests a bounded, tokenized slice of a larger result set.
type Page struct {
	Token    string
	PageSize int
}
