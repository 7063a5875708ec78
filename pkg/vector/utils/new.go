package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/pagerag/pkg/vector"
	"github.com/papercomputeco/pagerag/pkg/vector/chroma"
	"github.com/papercomputeco/pagerag/pkg/vector/inmemory"
	"github.com/papercomputeco/pagerag/pkg/vector/sqlitevec"
)

const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
	ProviderChroma = "chroma"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the Chroma server URL, or the SQLite database path.
	TargetURL string

	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderMemory, "":
		return inmemory.NewDriver(inmemory.Config{
			Dimensions: o.Dimensions,
		}, o.Logger), nil
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL: o.TargetURL,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// SupportedProviders lists the provider names NewVectorDriver accepts.
func SupportedProviders() []string {
	return []string{ProviderMemory, ProviderSQLite, ProviderChroma}
}
