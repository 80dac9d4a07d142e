package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	StorageKind string        `yaml:"storage_kind"`
	LocalRoot   string        `yaml:"local_root"`
	Server      Server        `yaml:"server"`
	Pipeline    Pipeline      `yaml:"pipeline"`
	Webhook     Webhook       `yaml:"webhook"`
	OpenAI      OpenAI        `yaml:"openai"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

type Pipeline struct {
	WorkspaceRoot         string        `yaml:"workspace_root"`
	AttemptTimeout        time.Duration `yaml:"attempt_timeout"`
	MaxRetries            uint          `yaml:"max_retries"`
	EnableVocalSeparation bool          `yaml:"enable_vocal_separation"`
	ComputeTarget         string        `yaml:"compute_target"`
	WhisperBin            string        `yaml:"whisper_bin"`
	WhisperModelDir       string        `yaml:"whisper_model_dir"`
	DemucsBin             string        `yaml:"demucs_bin"`
	DiarizeBin            string        `yaml:"diarize_bin"`
	HuggingFaceToken      string        `yaml:"huggingface_token"`
}

type Webhook struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint          `yaml:"max_retries"`
}

type OpenAI struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("pipeline.workspace_root", "temp")
	viper.SetDefault("pipeline.attempt_timeout", "2h")
	viper.SetDefault("pipeline.max_retries", 3)
	viper.SetDefault("pipeline.compute_target", "cpu")
	viper.SetDefault("pipeline.whisper_bin", "whisper")
	viper.SetDefault("pipeline.demucs_bin", "demucs")
	viper.SetDefault("pipeline.diarize_bin", "diarize")
	viper.SetDefault("webhook.timeout", "30s")
	viper.SetDefault("webhook.max_retries", 3)
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("storage.kind", "minio")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		StorageKind: viper.GetString("storage.kind"),
		LocalRoot:   viper.GetString("storage.local_root"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Pipeline: Pipeline{
			WorkspaceRoot:         viper.GetString("pipeline.workspace_root"),
			AttemptTimeout:        viper.GetDuration("pipeline.attempt_timeout"),
			MaxRetries:            viper.GetUint("pipeline.max_retries"),
			EnableVocalSeparation: viper.GetBool("pipeline.enable_vocal_separation"),
			ComputeTarget:         viper.GetString("pipeline.compute_target"),
			WhisperBin:            viper.GetString("pipeline.whisper_bin"),
			WhisperModelDir:       viper.GetString("pipeline.whisper_model_dir"),
			DemucsBin:             viper.GetString("pipeline.demucs_bin"),
			DiarizeBin:            viper.GetString("pipeline.diarize_bin"),
			HuggingFaceToken:      viper.GetString("pipeline.huggingface_token"),
		},
		Webhook: Webhook{
			Timeout:    viper.GetDuration("webhook.timeout"),
			MaxRetries: viper.GetUint("webhook.max_retries"),
		},
		OpenAI: OpenAI{
			BaseURL: viper.GetString("openai.base_url"),
			APIKey:  viper.GetString("openai.api_key"),
			Model:   viper.GetString("openai.model"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
