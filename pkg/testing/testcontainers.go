package testing

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// MongoDBContainer is a throwaway MongoDB instance for integration tests.
// The connection string is captured at startup; afterwards only the
// generic container surface is needed.
type MongoDBContainer struct {
	container testcontainers.Container

	// URI is the connection string for the running instance
	URI string
}

// NewMongoDBReplicaSetContainer starts a single-node replica set.
// Multi-document transactions refuse to run on a standalone server, so
// callers connect with Direct set.
func NewMongoDBReplicaSetContainer(ctx context.Context) (*MongoDBContainer, error) {
	container, err := mongodb.Run(ctx,
		"mongo:6",
		mongodb.WithReplicaSet("rs0"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoDBContainer{container: container, URI: uri}, nil
}

// Close terminates the container
func (m *MongoDBContainer) Close(ctx context.Context) error {
	if m.container == nil {
		return nil
	}
	return m.container.Terminate(ctx)
}
