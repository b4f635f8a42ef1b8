package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host            string        `validate:"required"`
		DebugHost       string
		ShutdownTimeout time.Duration `validate:"gt=0"`
	}

	databaseConfig struct {
		Engine        string `validate:"required"`
		Host          string `validate:"required"`
		Port          int    `validate:"gt=0"`
		Name          string `validate:"required"`
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	pathsConfig struct {
		UploadDir  string `validate:"required"`
		ResultsDir string `validate:"required"`
		// optional; the report falls back to the embedded Go fonts
		FontDir string
	}

	plagiarismConfig struct {
		Threshold       float64 `validate:"threshold"`
		MergeMode       string  `validate:"mergemode"`
		ReExtract       bool
		ReportTextLimit int `validate:"gt=0"`
	}

	ocrConfig struct {
		Provider              string        `validate:"oneof=none whisper vision"`
		BaseURL               string        `validate:"omitempty,url"`
		APIKey                string        `validate:"required_if=Provider whisper"`
		PollInterval          time.Duration `validate:"gt=0"`
		MaxPollAttempts       int           `validate:"gte=0"`
		Timeout               time.Duration `validate:"gt=0"`
		VisionCredentialsFile string
	}

	emailConfig struct {
		DefaultFromEmail string `validate:"required"`
		SendgridAPIKey   string
		SendgridBaseURL  string `validate:"omitempty,url"`
		FrontendBaseURL  string
	}

	twilioConfig struct {
		AccountSID string
		AuthToken  string
		From       string
		BaseURL    string
		Timeout    time.Duration
		MaxRetries int `validate:"gte=0"`
	}

	redisConfig struct {
		Addr    string
		LockTTL time.Duration `validate:"gt=0"`
	}

	Config struct {
		AppName      string `validate:"required"`
		Env          string `validate:"required"`
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string

		Server     serverConfig
		Database   databaseConfig
		Paths      pathsConfig
		Plagiarism plagiarismConfig
		OCR        ocrConfig
		Email      emailConfig
		Twilio     twilioConfig
		Redis      redisConfig
	}
)

func (c databaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c emailConfig) DefaultFrom() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Address: c.DefaultFromEmail}
	}
	return *addr
}

// TwilioEnabled reports whether SMS notifications can be sent.
func (c *Config) TwilioEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.From != ""
}

// Validate checks the loaded configuration against its struct tags.
func (c *Config) Validate(validate *validator.Validate) error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// NewConfig loads the configuration from the environment (prefixed with the value of ENV)
// and from config/.env.<env> if that file exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(v, env)
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("app.name"),
		Env:          env,
		Build:        v.GetString("app.build"),
		Debug:        v.GetBool("app.debug"),
		TestMode:     env == "TEST",
		RollbarToken: v.GetString("rollbar.token"),
		Server: serverConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debughost"),
			ShutdownTimeout: v.GetDuration("server.shutdowntimeout"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("db.engine"),
			Host:          v.GetString("db.host"),
			Port:          v.GetInt("db.port"),
			Name:          v.GetString("db.name"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			AdminUser:     v.GetString("db.adminuser"),
			AdminPassword: v.GetString("db.adminpassword"),
			DisableTLS:    v.GetBool("db.disabletls"),
		},
		Paths: pathsConfig{
			UploadDir:  v.GetString("paths.uploaddir"),
			ResultsDir: v.GetString("paths.resultsdir"),
			FontDir:    v.GetString("paths.fontdir"),
		},
		Plagiarism: plagiarismConfig{
			Threshold:       v.GetFloat64("plagiarism.threshold"),
			MergeMode:       v.GetString("plagiarism.mergemode"),
			ReExtract:       v.GetBool("plagiarism.reextract"),
			ReportTextLimit: v.GetInt("plagiarism.reporttextlimit"),
		},
		OCR: ocrConfig{
			Provider:              strings.ToLower(v.GetString("ocr.provider")),
			BaseURL:               v.GetString("ocr.baseurl"),
			APIKey:                v.GetString("ocr.apikey"),
			PollInterval:          v.GetDuration("ocr.pollinterval"),
			MaxPollAttempts:       v.GetInt("ocr.maxpollattempts"),
			Timeout:               v.GetDuration("ocr.timeout"),
			VisionCredentialsFile: v.GetString("ocr.visioncredentialsfile"),
		},
		Email: emailConfig{
			DefaultFromEmail: v.GetString("email.defaultfrom"),
			SendgridAPIKey:   v.GetString("email.sendgridapikey"),
			SendgridBaseURL:  v.GetString("email.sendgridbaseurl"),
			FrontendBaseURL:  v.GetString("email.frontendbaseurl"),
		},
		Twilio: twilioConfig{
			AccountSID: v.GetString("twilio.accountsid"),
			AuthToken:  v.GetString("twilio.authtoken"),
			From:       v.GetString("twilio.from"),
			BaseURL:    v.GetString("twilio.baseurl"),
			Timeout:    v.GetDuration("twilio.timeout"),
			MaxRetries: v.GetInt("twilio.maxretries"),
		},
		Redis: redisConfig{
			Addr:    v.GetString("redis.addr"),
			LockTTL: v.GetDuration("redis.lockttl"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("app.name", "PlagCheck")
	v.SetDefault("app.build", "develop")
	v.SetDefault("app.debug", env == "DEV" || env == "TEST")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debughost", ":4000")
	v.SetDefault("server.shutdowntimeout", 5*time.Second)

	v.SetDefault("db.engine", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "plagcheck")
	v.SetDefault("db.disabletls", true)

	v.SetDefault("paths.uploaddir", "uploads")
	v.SetDefault("paths.resultsdir", filepath.Join("uploads", "results"))

	v.SetDefault("plagiarism.threshold", 10.0)
	v.SetDefault("plagiarism.mergemode", "single-pass")
	v.SetDefault("plagiarism.reporttextlimit", 200)

	v.SetDefault("ocr.provider", "none")
	v.SetDefault("ocr.baseurl", "https://llmwhisperer-api.us-central.unstract.com/api/v2")
	v.SetDefault("ocr.pollinterval", 5*time.Second)
	v.SetDefault("ocr.maxpollattempts", 120)
	v.SetDefault("ocr.timeout", 60*time.Second)

	v.SetDefault("email.defaultfrom", "PlagCheck <noreply@localhost>")
	v.SetDefault("email.sendgridbaseurl", "https://api.sendgrid.com")
	v.SetDefault("email.frontendbaseurl", "http://localhost:8000")

	v.SetDefault("twilio.baseurl", "https://api.twilio.com/2010-04-01")
	v.SetDefault("twilio.timeout", 30*time.Second)
	v.SetDefault("twilio.maxretries", 4)

	v.SetDefault("redis.lockttl", 30*time.Minute)
}

func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
