package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/company-directory/internal/store"
)

// toBSON renames id to _id, turning hex identities into ObjectIDs.
func toBSON(doc store.Document) bson.M {
	out := bson.M{}
	for k, v := range doc {
		if k == seqField {
			continue
		}
		if k == store.IDField {
			if id, ok := v.(string); ok && id != "" {
				out[mongoIDField] = objectID(id)
			}
			continue
		}
		out[k] = v
	}
	return out
}

// toFilter translates an exact-match filter. A non-string id matches nothing.
func toFilter(filter store.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if k != store.IDField {
			out[k] = v
			continue
		}
		id, ok := v.(string)
		if !ok {
			out[mongoIDField] = bson.M{"$in": bson.A{}}
			continue
		}
		out[mongoIDField] = objectID(id)
	}
	return out
}

func fromBSON(raw bson.M) store.Document {
	doc := store.Document{}
	for k, v := range raw {
		if k == seqField {
			continue
		}
		if k == mongoIDField {
			doc[store.IDField] = idString(v)
			continue
		}
		doc[k] = normalize(v)
	}
	return doc
}

// objectID keeps non-hex identities as plain strings.
func objectID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	default:
		return v
	}
}
