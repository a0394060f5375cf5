package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Now returns the current UTC time truncated to milliseconds, the
// precision BSON datetimes keep across a round trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Inc builds an increment update for a numeric field and stamps updatedAt
func Inc(field string, delta int64) bson.M {
	return bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updatedAt": Now()},
	}
}
