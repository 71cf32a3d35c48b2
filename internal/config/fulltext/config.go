package fulltextconfig

import (
	"strings"

	"gitlab.com/pietroski-software-company/golang/devex/env"
	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const (
	defaultNetwork  = "tcp"
	defaultGRPCPort = "50060"
	defaultHTTPPort = "7080"
)

type (
	Config struct {
		Fulltext *Fulltext `validation:"required"`
	}

	Fulltext struct {
		Store   *Store   `validation:"required"`
		Index   *Index   `validation:"required"`
		Applier *Applier
		Server  *Server
	}

	Store struct {
		Path string `env:"FULLTEXT_STORE_PATH" validation:"required"`
	}

	Index struct {
		Path string `env:"FULLTEXT_INDEX_PATH" validation:"required"`
		// Definitions holds one name:kind:prop1,prop2 entry per index.
		Definitions []string `env:"FULLTEXT_INDEXES" split:";"`
		MaxEdits    int      `env:"FULLTEXT_MAX_EDITS"`
	}

	Applier struct {
		QueueSize           int `env:"FULLTEXT_QUEUE_SIZE"`
		PopulationBatchSize int `env:"FULLTEXT_POPULATION_BATCH_SIZE"`
		ScanLimit           int `env:"FULLTEXT_SCAN_LIMIT"`
	}

	Server struct {
		Network  string `env:"FULLTEXT_SERVER_NETWORK"`
		GRPCPort string `env:"FULLTEXT_GRPC_PORT"`
		HTTPPort string `env:"FULLTEXT_HTTP_PORT"`

		// AllowedOrigins limits CORS; empty allows any origin.
		AllowedOrigins []string `env:"FULLTEXT_HTTP_ALLOWED_ORIGINS" split:";"`
	}
)

// Load reads the configuration from the environment and fills in the
// server defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Load(cfg); err != nil {
		return nil, errorsx.Wrap(err, "failed to load fulltext config")
	}

	server := cfg.Fulltext.Server
	if server.Network == "" {
		server.Network = defaultNetwork
	}
	if server.GRPCPort == "" {
		server.GRPCPort = defaultGRPCPort
	}
	if server.HTTPPort == "" {
		server.HTTPPort = defaultHTTPPort
	}

	return cfg, nil
}

// Identities parses the configured index definitions.
func (i *Index) Identities() ([]fulltextmodels.IndexIdentity, error) {
	identities := make([]fulltextmodels.IndexIdentity, 0, len(i.Definitions))
	seen := make(map[string]struct{}, len(i.Definitions))
	for _, definition := range i.Definitions {
		if strings.TrimSpace(definition) == "" {
			continue
		}

		identity, err := ParseIdentity(definition)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[identity.Key()]; ok {
			return nil, errorsx.Wrapf(fulltextmodels.ErrInvalidIdentity, "index %s is defined twice", identity.Key())
		}
		seen[identity.Key()] = struct{}{}

		identities = append(identities, identity)
	}

	return identities, nil
}

// ParseIdentity reads a single name:kind:prop1,prop2 definition.
func ParseIdentity(definition string) (fulltextmodels.IndexIdentity, error) {
	parts := strings.Split(strings.TrimSpace(definition), ":")
	if len(parts) != 3 {
		return fulltextmodels.IndexIdentity{}, errorsx.Wrapf(fulltextmodels.ErrInvalidIdentity,
			"malformed index definition %q", definition)
	}

	kind, err := fulltextmodels.ParseEntityKind(parts[1])
	if err != nil {
		return fulltextmodels.IndexIdentity{}, errorsx.Wrapf(fulltextmodels.ErrInvalidIdentity,
			"index definition %q: %v", definition, err)
	}

	var properties []string
	for _, property := range strings.Split(parts[2], ",") {
		if property = strings.TrimSpace(property); property != "" {
			properties = append(properties, property)
		}
	}

	return fulltextmodels.NewIndexIdentity(strings.TrimSpace(parts[0]), kind, properties...)
}
