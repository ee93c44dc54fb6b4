package logger

import (
	"os"
	"runtime"
	"strconv"
)

type Config struct {
	Level      Level             `json:"level"       yaml:"level"`
	Format     string            `json:"format"      yaml:"format"` // json, text, console
	Output     string            `json:"output"      yaml:"output"` // stdout, stderr, file
	FilePath   string            `json:"file_path"   yaml:"file_path"`
	MaxSize    int               `json:"max_size"    yaml:"max_size"` // MB
	MaxBackups int               `json:"max_backups" yaml:"max_backups"`
	MaxAge     int               `json:"max_age"     yaml:"max_age"` // days
	Compress   bool              `json:"compress"    yaml:"compress"`
	Fields     map[string]string `json:"fields"      yaml:"fields"`
}

// GetDefaultFields collects static process and container fields attached to every entry.
func GetDefaultFields() map[string]string {
	hostname, _ := os.Hostname()

	fields := map[string]string{
		"hostname":   hostname,
		"pid":        strconv.Itoa(os.Getpid()),
		"go_version": runtime.Version(),
	}

	envFields := map[string]string{
		"KUBERNETES_NAMESPACE": "k8s_namespace",
		"KUBERNETES_POD_NAME":  "k8s_pod",
		"KUBERNETES_NODE_NAME": "k8s_node",
		"DOCKER_IMAGE":         "docker_image",
		"APP_NAME":             "app_name",
		"APP_VERSION":          "app_version",
		"APP_ENV":              "environment",
	}
	for env, field := range envFields {
		if v := os.Getenv(env); v != "" {
			fields[field] = v
		}
	}

	return fields
}

func NewDefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     "console",
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Fields:     GetDefaultFields(),
	}
}
