package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
		Mode     string `env:"APP_MODE" envDefault:"development"`

		Auth   AuthProperties       `envPrefix:"AUTH_"`
		Mongo  MongoProperties      `envPrefix:"MONGO_"`
		S3     S3Properties         `envPrefix:"S3_"`
		Server HttpServerProperties `envPrefix:"HTTP_"`
	}

	AuthProperties struct {
		TokenSecret string        `env:"TOKEN_SECRET,required"`
		TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"72h"`
		BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`
	}

	MongoProperties struct {
		URI            string        `env:"URI" envDefault:"mongodb://localhost:27017"`
		Database       string        `env:"DATABASE" envDefault:"travelstory"`
		ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	}

	HttpServerProperties struct {
		Port           string        `env:"PORT" envDefault:"8000"`
		ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
		AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
		Profiling      bool          `env:"PROFILING" envDefault:"false"`
	}

	S3Properties struct {
		Host       string        `env:"HOST" envDefault:"localhost:9000"`
		AccessKey  string        `env:"ACCESS_KEY"`
		SecretKey  string        `env:"SECRET_KEY"`
		Bucket     string        `env:"BUCKET" envDefault:"travel-stories"`
		UseSSL     bool          `env:"USE_SSL" envDefault:"false"`
		Folder     string        `env:"FOLDER" envDefault:"travel-stories"`
		PublicURL  string        `env:"PUBLIC_URL" envDefault:"http://localhost:8000"`
		PresignTTL time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
	}
)

// ReadProperties parses the process environment once. The result is treated
// as immutable and handed to every constructor that needs it.
func ReadProperties() (*Properties, error) {
	config := &Properties{}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	return config, nil
}

func (p *Properties) IsProduction() bool {
	return p.Mode == ModeProduction
}

func (p *Properties) validate() error {
	if p.Mode != ModeDevelopment && p.Mode != ModeProduction {
		return fmt.Errorf("unknown APP_MODE %q", p.Mode)
	}
	if p.Auth.TokenSecret == "" {
		return fmt.Errorf("AUTH_TOKEN_SECRET must not be empty")
	}
	if p.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if p.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
