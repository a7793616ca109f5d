//go:build integration

package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/conf"
)

// openMySQLContainer starts a MySQL server and opens a store against it
func openMySQLContainer(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("slrealizer"),
		tcmysql.WithUsername("slrealizer"),
		tcmysql.WithPassword("secret"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	s, err := Open(&conf.DatastoreSettings{
		Type:      "mysql",
		BatchSize: 100,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     port.Port(),
			Username: "slrealizer",
			Password: "secret",
			Database: "slrealizer",
		},
	}, quietLogger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMySQL_SourceRoundTrip(t *testing.T) {
	s := openMySQLContainer(t)
	ctx := context.Background()

	table := sourceTable()
	require.NoError(t, s.SaveRun(ctx, &Run{ID: "mysql-run", Seed: 1, Method: "analytic", Pairs: 5, Rows: 5}))
	require.NoError(t, s.SaveSourceTable(ctx, "mysql-run", table))

	got, err := s.LoadSourceTable(ctx, "mysql-run")
	require.NoError(t, err)
	assert.Equal(t, table, got)

	obj := &catalog.ObjectTable{Records: []catalog.ObjectRecord{{LensID: 1}}}
	require.NoError(t, s.SaveObjectTable(ctx, "mysql-run", obj))
	loaded, err := s.LoadObjectTable(ctx, "mysql-run", false)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}
