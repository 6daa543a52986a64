package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver  string
	DBSource  string
	Port      string
	JWTSecret string
	JWTTTL    time.Duration

	DefaultPrepTimeMinutes int
	ConflictRetries        int
	OverdueScanInterval    time.Duration
	WSSendBuffer           int
	IdempotencyTTL         time.Duration

	RabbitMQURL string
	CatalogURL  string
	CORSOrigins []string
}

// LoadConfig reads .env when present, then the environment. A YAML file named
// by CONFIG_FILE fills in keys the environment leaves unset; its keys are the
// env names in lower case (db_driver, port, ...).
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file, using environment")
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Fatal("cannot read config file")
		}
		src.file = file
	}
	return src.load()
}

type source struct {
	file map[string]string
}

func (s source) load() *Config {
	return &Config{
		DBDriver:  s.str("DB_DRIVER", "sqlite"),
		DBSource:  s.str("DB_SOURCE", "restaurant.db"),
		Port:      s.str("PORT", "8000"),
		JWTSecret: s.str("JWT_SECRET", "changeme"),
		JWTTTL:    s.duration("JWT_TTL", 12*time.Hour),

		DefaultPrepTimeMinutes: s.num("DEFAULT_PREP_TIME_MINUTES", 15),
		ConflictRetries:        s.num("ORDER_CONFLICT_RETRIES", 3),
		OverdueScanInterval:    s.duration("OVERDUE_SCAN_INTERVAL", 30*time.Second),
		WSSendBuffer:           s.num("WS_SEND_BUFFER", 64),
		IdempotencyTTL:         s.duration("IDEMPOTENCY_TTL", 10*time.Minute),

		RabbitMQURL: s.str("RABBITMQ_URL", ""),
		CatalogURL:  s.str("CATALOG_URL", ""),
		CORSOrigins: splitList(s.str("CORS_ORIGINS", "*")),
	}
}

func (s source) str(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	if v, ok := s.file[strings.ToLower(key)]; ok {
		return v
	}
	return fallback
}

func (s source) num(key string, fallback int) int {
	v := s.str(key, "")
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warnf("not an integer: %q, using %d", v, fallback)
		return fallback
	}
	return i
}

// duration accepts Go durations ("30s") or a bare number of seconds. Zero and
// negative values fall back.
func (s source) duration(key string, fallback time.Duration) time.Duration {
	v := s.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		i, aerr := strconv.Atoi(v)
		if aerr != nil {
			log.WithField("key", key).Warnf("not a duration: %q, using %s", v, fallback)
			return fallback
		}
		d = time.Duration(i) * time.Second
	}
	if d <= 0 {
		log.WithField("key", key).Warnf("duration must be positive: %q, using %s", v, fallback)
		return fallback
	}
	return d
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch vv := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(vv))
			for _, p := range vv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToLower(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToLower(k)] = fmt.Sprint(vv)
		}
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
