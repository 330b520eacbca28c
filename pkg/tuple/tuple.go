// Package tuple defines the relationship-tuple data model: the six-field
// TupleKey that every check, expansion, and store operation is built from,
// plus the persisted Tuple and request-scoped ContextualTuple wrappers
// around it.
package tuple

import (
	"fmt"
	"strings"
	"time"
)

// Wildcard is the reserved user ID meaning "every ID of this user type".
const Wildcard = "*"

// ObjectType names a class of object ("document", "folder", "user", ...).
type ObjectType string

// Relation names an edge label defined on an ObjectType.
type Relation string

// Key identifies a single relationship tuple:
//
//	object_type:object_id # relation @ user_type:user_id[#user_relation]
//
// UserRelation is empty for user-as-subject tuples and set only when the
// tuple's user position is itself a userset reference (type:id#relation).
type Key struct {
	ObjectType   ObjectType
	ObjectID     string
	Relation     Relation
	UserType     ObjectType
	UserID       string
	UserRelation Relation
}

// NewKey builds a Key from a bare (non-userset) subject.
func NewKey(objectType ObjectType, objectID string, relation Relation, userType ObjectType, userID string) Key {
	return Key{ObjectType: objectType, ObjectID: objectID, Relation: relation, UserType: userType, UserID: userID}
}

// NewUsersetKey builds a Key whose user position is a userset reference.
func NewUsersetKey(objectType ObjectType, objectID string, relation Relation, userType ObjectType, userID string, userRelation Relation) Key {
	return Key{ObjectType: objectType, ObjectID: objectID, Relation: relation, UserType: userType, UserID: userID, UserRelation: userRelation}
}

// IsWildcard reports whether the tuple grants to every ID of UserType.
func (k Key) IsWildcard() bool {
	return k.UserRelation == "" && k.UserID == Wildcard
}

// IsUserset reports whether the user position references a userset rather
// than a bare subject.
func (k Key) IsUserset() bool {
	return k.UserRelation != ""
}

// Object returns the canonical "type:id" form of the tuple's object.
func (k Key) Object() string {
	return fmt.Sprintf("%s:%s", k.ObjectType, k.ObjectID)
}

// User returns the canonical form of the tuple's user, including the
// "#relation" suffix for userset references.
func (k Key) User() string {
	if k.UserRelation != "" {
		return fmt.Sprintf("%s:%s#%s", k.UserType, k.UserID, k.UserRelation)
	}
	return fmt.Sprintf("%s:%s", k.UserType, k.UserID)
}

// Canonical returns the wire encoding used for fingerprints and logs:
//
//	<object_type>:<object_id>-<relation>-<user_type>:<user_id>[#<user_relation>]
func (k Key) Canonical() string {
	var b strings.Builder
	b.WriteString(string(k.ObjectType))
	b.WriteByte(':')
	b.WriteString(k.ObjectID)
	b.WriteByte('-')
	b.WriteString(string(k.Relation))
	b.WriteByte('-')
	b.WriteString(string(k.UserType))
	b.WriteByte(':')
	b.WriteString(k.UserID)
	if k.UserRelation != "" {
		b.WriteByte('#')
		b.WriteString(string(k.UserRelation))
	}
	return b.String()
}

// String implements fmt.Stringer with the canonical encoding.
func (k Key) String() string {
	return k.Canonical()
}

// WithRelation returns a copy of k with its Relation replaced.
// Used by ComputedUserset and TupleToUserset dispatch, which redirect the
// relation on the same object or on a discovered object.
func (k Key) WithRelation(relation Relation) Key {
	k.Relation = relation
	return k
}

// WithObject returns a copy of k with ObjectType/ObjectID replaced, keeping
// the relation and user unchanged. Used by tuple-to-userset traversal, which
// re-targets the object to each tupleset-reached object.
func (k Key) WithObject(objectType ObjectType, objectID string) Key {
	k.ObjectType = objectType
	k.ObjectID = objectID
	return k
}

// MatchesSubject reports whether subject (userType, userID[, userRelation])
// could satisfy k's user position: either an exact match, or a wildcard tuple
// matching any concrete userID of the same type.
func (k Key) MatchesSubject(userType ObjectType, userID string, userRelation Relation) bool {
	if k.UserType != userType {
		return false
	}
	if k.UserRelation != "" {
		return k.UserRelation == userRelation && k.UserID == userID
	}
	if userRelation != "" {
		return false
	}
	return k.UserID == Wildcard || k.UserID == userID
}

// Tuple is a persisted relationship tuple: a Key plus tenant scoping and a
// creation timestamp. Tuples are owned by the tenant that wrote them and are
// destroyed only by an explicit delete.
type Tuple struct {
	TenantID  string
	Key       Key
	CreatedAt time.Time
}

// ContextualTuple is a tuple supplied at request time. It behaves exactly
// like a persisted Tuple for the duration of one check but is never written
// to the store and never increments the datastore query counter.
type ContextualTuple struct {
	Key Key
}

// CanonicalContextualTuples renders contextual tuples in the sorted,
// slash-joined form spec.md §4.3 requires as part of the cache fingerprint:
// sorted lexicographically by canonical form, then joined with "/".
func CanonicalContextualTuples(tuples []ContextualTuple) string {
	if len(tuples) == 0 {
		return ""
	}
	forms := make([]string, len(tuples))
	for i, t := range tuples {
		forms[i] = t.Key.Canonical()
	}
	// Insertion sort is fine here: contextual-tuple lists are request-scoped
	// and small (typically single digits), so an extra sort import isn't
	// worth it.
	sortStrings(forms)
	return strings.Join(forms, "/")
}

// sortStrings sorts a small slice of strings in place (lexicographic order).
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
