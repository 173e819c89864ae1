package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iota-uz/taxdesk/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreSupabase = "supabase"
	StoreMongo    = "mongo"
)

const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

const (
	SenderSMTP = "smtp"
	SenderLog  = "log"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory. When none
// of them exist there, it retries from the nearest parent holding a go.mod,
// so tests run from package directories still pick up the repo-level files.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root := moduleRoot(); root != "" {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" && !filepath.IsAbs(file) {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := wd; ; {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type StoreOptions struct {
	Backend string `env:"STORE_BACKEND" envDefault:"memory"`
}

func (s *StoreOptions) Validate() error {
	switch s.Backend {
	case StoreMemory, StorePostgres, StoreRedis, StoreSupabase, StoreMongo:
		return nil
	default:
		return fmt.Errorf("invalid STORE_BACKEND=%q (expected memory|postgres|redis|supabase|mongo)", s.Backend)
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"taxdesk"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type RedisOptions struct {
	URL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_KEY_PREFIX" envDefault:"taxdesk"`
}

type SupabaseOptions struct {
	URL        string        `env:"SUPABASE_URL"`
	ServiceKey string        `env:"SUPABASE_SERVICE_KEY"`
	Timeout    time.Duration `env:"SUPABASE_TIMEOUT" envDefault:"10s"`
}

func (s *SupabaseOptions) Validate() error {
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("SUPABASE_URL is required when STORE_BACKEND=supabase")
	}
	if strings.TrimSpace(s.ServiceKey) == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when STORE_BACKEND=supabase")
	}
	return nil
}

type MongoOptions struct {
	URL      string        `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	Database string        `env:"MONGO_DATABASE" envDefault:"taxdesk"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s"`
}

type SMTPOptions struct {
	Host     string `env:"SMTP_HOST" envDefault:"localhost"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@taxdesk.local"`
	TLS      bool   `env:"SMTP_TLS" envDefault:"true"`
}

type NotifyOptions struct {
	Sender      string        `env:"NOTIFY_SENDER" envDefault:"log"`
	Recipients  []string      `env:"NOTIFY_RECIPIENTS" envSeparator:","`
	MaxAttempts int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"NOTIFY_BASE_DELAY" envDefault:"500ms"`
	MaxDelay    time.Duration `env:"NOTIFY_MAX_DELAY" envDefault:"10s"`
}

func (n *NotifyOptions) Validate() error {
	if n.Sender != SenderSMTP && n.Sender != SenderLog {
		return fmt.Errorf("invalid NOTIFY_SENDER=%q (expected smtp|log)", n.Sender)
	}
	if n.MaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1, got %d", n.MaxAttempts)
	}
	if n.Sender == SenderSMTP && len(n.Recipients) == 0 {
		return fmt.Errorf("NOTIFY_RECIPIENTS is required when NOTIFY_SENDER=smtp")
	}
	return nil
}

type AuthOptions struct {
	Mode      string `env:"AUTH_MODE" envDefault:"jwt"`
	JWTSecret string `env:"JWT_SECRET"`
	Audience  string `env:"JWT_AUDIENCE" envDefault:"authenticated"`
	Issuer    string `env:"JWT_ISSUER"`
}

func (a *AuthOptions) Validate() error {
	switch a.Mode {
	case AuthModeNone:
		return nil
	case AuthModeJWT:
		if len(a.JWTSecret) < 16 {
			return fmt.Errorf("JWT_SECRET must be at least 16 characters when AUTH_MODE=jwt")
		}
		return nil
	default:
		return fmt.Errorf("invalid AUTH_MODE=%q (expected jwt|none)", a.Mode)
	}
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"taxdesk"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	SubmitRPM int    `env:"RATE_LIMIT_SUBMIT_RPM" envDefault:"30"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.SubmitRPM < 0 {
		return fmt.Errorf("rate limit SubmitRPM must be non-negative, got %d", r.SubmitRPM)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Store         StoreOptions
	Database      DatabaseOptions
	Redis         RedisOptions
	Supabase      SupabaseOptions
	Mongo         MongoOptions
	SMTP          SMTPOptions
	Notify        NotifyOptions
	Auth          AuthOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions

	MigrationsDir    string   `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ServerPort       int      `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string   `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string   `env:"-"`
	Domain           string   `env:"DOMAIN" envDefault:"localhost"`
	Origin           string   `env:"ORIGIN" envDefault:"http://localhost:3200"`
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes     int64    `env:"MAX_BODY_BYTES" envDefault:"65536"`
	LogLevel         string   `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string   `env:"LOG_PATH" envDefault:""`
	// Looked up on every request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Falls back to request.RemoteAddr when absent.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	// Staff endpoints (/api/admin/*) require this token in X-Admin-Token. Empty disables them.
	AdminToken string `env:"ADMIN_TOKEN" envDefault:""`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production {
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	if os.Getenv("ORIGIN") == "" {
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}
	return nil
}

// Validate runs every section check that applies to the selected backends.
func (c *Configuration) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Auth.Mode = strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	c.Notify.Sender = strings.ToLower(strings.TrimSpace(c.Notify.Sender))

	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Store.Backend == StoreSupabase {
		if err := c.Supabase.Validate(); err != nil {
			return err
		}
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.Auth.Mode == AuthModeNone && c.GoAppEnvironment == Production {
		return fmt.Errorf("AUTH_MODE=none is not allowed when GO_APP_ENV=production")
	}
	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notification configuration error: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
