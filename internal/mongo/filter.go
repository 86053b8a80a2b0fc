package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mesh-intelligence/happi/pkg/types"
)

// Filter translates q to a MongoDB filter document. Scalar equality, sets of
// scalars, numeric ranges and regular expressions are expressed with plain
// equality, $in, $gte/$lte and $regex; other conditions are omitted, so the
// filter selects a superset of the matching records.
func Filter(q types.Query) bson.D {
	filter := bson.D{}
	for _, key := range q.Keys() {
		switch c := q[key].(type) {
		case types.Equals:
			if scalar(c.Value) {
				filter = append(filter, bson.E{Key: key, Value: c.Value})
			}
		case types.In:
			if len(c.Values) == 0 {
				continue
			}
			ok := true
			for _, v := range c.Values {
				ok = ok && scalar(v)
			}
			if ok {
				filter = append(filter, bson.E{Key: key, Value: bson.D{{Key: "$in", Value: c.Values}}})
			}
		case types.Range:
			filter = append(filter, bson.E{Key: key, Value: bson.D{
				{Key: "$gte", Value: c.Min},
				{Key: "$lte", Value: c.Max},
			}})
		case types.Regex:
			if expr := c.Expr(); expr != "" {
				filter = append(filter, bson.E{Key: key, Value: bson.D{{Key: "$regex", Value: expr}}})
			}
		}
	}
	return filter
}

func scalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := types.ToFloat(v)
	return ok
}
