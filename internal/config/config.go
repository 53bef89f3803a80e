package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/creachadair/shell"
	"github.com/joho/godotenv"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Filesystem layout
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`

	// Projects to harvest, in processing order
	Projects []models.Project `yaml:"projects" mapstructure:"projects"`

	// Stages to process, in order
	Stages []string `yaml:"stages" mapstructure:"stages"`

	// Build tool invocation
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Artifact matching
	Match MatchConfig `yaml:"match" mapstructure:"match"`

	// Git behavior
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// State journal
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`

	// Artifact manifest store
	Manifest ManifestConfig `yaml:"manifest" mapstructure:"manifest"`

	// Optional S3-compatible publishing
	Publish PublishConfig `yaml:"publish" mapstructure:"publish"`

	// Logging
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

type WorkspaceConfig struct {
	ProjectsDir    string `yaml:"projects_dir" mapstructure:"projects_dir"`
	DatasetDir     string `yaml:"dataset_dir" mapstructure:"dataset_dir"` // contains before/ and after/
	ScratchDirName string `yaml:"scratch_dir_name" mapstructure:"scratch_dir_name"`
}

type BuildConfig struct {
	GradleArgs       string        `yaml:"gradle_args" mapstructure:"gradle_args"`
	MavenArgs        string        `yaml:"maven_args" mapstructure:"maven_args"`
	Javac            string        `yaml:"javac" mapstructure:"javac"`
	JavacArgs        string        `yaml:"javac_args" mapstructure:"javac_args"`
	SourceRoot       string        `yaml:"source_root" mapstructure:"source_root"`
	RespectGitignore bool          `yaml:"respect_gitignore" mapstructure:"respect_gitignore"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"` // 0 = no timeout
}

type MatchConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy"` // stem, exact, sourcefile, auto
}

type GitConfig struct {
	Binary  string `yaml:"binary" mapstructure:"binary"`
	Shallow bool   `yaml:"shallow" mapstructure:"shallow"`
}

type JournalConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type ManifestConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite3, postgres
	DSN    string `yaml:"dsn" mapstructure:"dsn"`       // empty disables the manifest
}

type PublishConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"` // empty disables publishing
	Region      string `yaml:"region" mapstructure:"region"`
	Bucket      string `yaml:"bucket" mapstructure:"bucket"`
	AccessKey   string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey   string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL      bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // auto, text, json
	File   string `yaml:"file" mapstructure:"file"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			ProjectsDir:    "projects",
			DatasetDir:     ".",
			ScratchDirName: "compiled",
		},
		Stages: []string{string(models.StageBefore), string(models.StageAfter)},
		Build: BuildConfig{
			GradleArgs: "build",
			MavenArgs:  "clean compile",
			Javac:      "javac",
			SourceRoot: "src",
		},
		Match: MatchConfig{
			Strategy: "stem",
		},
		Git: GitConfig{
			Binary: "git",
		},
		Journal: JournalConfig{
			Path: filepath.Join(".classharvest", "journal.db"),
		},
		Manifest: ManifestConfig{
			Driver: "sqlite3",
			DSN:    filepath.Join(".classharvest", "manifest.db"),
		},
		Publish: PublishConfig{
			Region:      "us-east-1",
			Concurrency: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from defaults, an optional YAML file, .env files and HARVEST_* variables
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("harvest")
		v.AddConfigPath(".")
		v.AddConfigPath(".classharvest")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".classharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// slices decode element-wise into existing values; viper already holds their defaults
	cfg.Stages = nil
	cfg.Projects = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("workspace.projects_dir", cfg.Workspace.ProjectsDir)
	v.SetDefault("workspace.dataset_dir", cfg.Workspace.DatasetDir)
	v.SetDefault("workspace.scratch_dir_name", cfg.Workspace.ScratchDirName)
	v.SetDefault("stages", cfg.Stages)
	v.SetDefault("build.gradle_args", cfg.Build.GradleArgs)
	v.SetDefault("build.maven_args", cfg.Build.MavenArgs)
	v.SetDefault("build.javac", cfg.Build.Javac)
	v.SetDefault("build.javac_args", cfg.Build.JavacArgs)
	v.SetDefault("build.source_root", cfg.Build.SourceRoot)
	v.SetDefault("build.respect_gitignore", cfg.Build.RespectGitignore)
	v.SetDefault("build.timeout", cfg.Build.Timeout)
	v.SetDefault("match.strategy", cfg.Match.Strategy)
	v.SetDefault("git.binary", cfg.Git.Binary)
	v.SetDefault("git.shallow", cfg.Git.Shallow)
	v.SetDefault("journal.path", cfg.Journal.Path)
	v.SetDefault("manifest.driver", cfg.Manifest.Driver)
	v.SetDefault("manifest.dsn", cfg.Manifest.DSN)
	v.SetDefault("publish.endpoint", cfg.Publish.Endpoint)
	v.SetDefault("publish.region", cfg.Publish.Region)
	v.SetDefault("publish.bucket", cfg.Publish.Bucket)
	v.SetDefault("publish.access_key", cfg.Publish.AccessKey)
	v.SetDefault("publish.secret_key", cfg.Publish.SecretKey)
	v.SetDefault("publish.use_ssl", cfg.Publish.UseSSL)
	v.SetDefault("publish.concurrency", cfg.Publish.Concurrency)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	// godotenv.Load never overrides variables that are already set,
	// so the first file to define a key wins
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".classharvest", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

func (c *Config) expandPaths() {
	c.Workspace.ProjectsDir = expandPath(c.Workspace.ProjectsDir)
	c.Workspace.DatasetDir = expandPath(c.Workspace.DatasetDir)
	c.Journal.Path = expandPath(c.Journal.Path)
	c.Log.File = expandPath(c.Log.File)
	if c.Manifest.Driver == "sqlite3" {
		c.Manifest.DSN = expandPath(c.Manifest.DSN)
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// ParsedStages converts the configured stage names
func (c *Config) ParsedStages() ([]models.Stage, error) {
	stages := make([]models.Stage, 0, len(c.Stages))
	for _, s := range c.Stages {
		stage, err := models.ParseStage(s)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// GradleArgv splits the configured Gradle arguments
func (b BuildConfig) GradleArgv() ([]string, error) {
	return splitArgs("build.gradle_args", b.GradleArgs)
}

// MavenArgv splits the configured Maven arguments
func (b BuildConfig) MavenArgv() ([]string, error) {
	return splitArgs("build.maven_args", b.MavenArgs)
}

// JavacArgv splits the configured extra javac arguments
func (b BuildConfig) JavacArgv() ([]string, error) {
	return splitArgs("build.javac_args", b.JavacArgs)
}

func splitArgs(key, value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	args, ok := shell.Split(value)
	if !ok {
		return nil, fmt.Errorf("%s: unbalanced quotes in %q", key, value)
	}
	return args, nil
}
