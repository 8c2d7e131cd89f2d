package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 5000
	DefaultConcurrency = 10
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Config はプロセス起動時に一度だけ組み立てられ、以降は読み取り専用で共有されます。
type Config struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Concurrency int    `yaml:"concurrency"`
	LogLevel    string `yaml:"logLevel"`
	LogFormat   string `yaml:"logFormat"`
}

// Default はデフォルト値を持つ Config を返します。
func Default() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		Concurrency: DefaultConcurrency,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// LoadFile はYAMLファイルの値で cfg を上書きします。ファイル内で省略された項目は変更しません。
// path が空の場合は何もしません。
func LoadFile(cfg Config, path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("設定ファイルのパースに失敗しました (%s): %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv は環境変数 HOST, PORT, CONCURRENCY, LOG_LEVEL, LOG_FORMAT の値で cfg を上書きします。
// lookup には通常 os.LookupEnv を渡します。
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup("HOST"); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("PORTが不正です (%q): %w", v, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup("CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("CONCURRENCYが不正です (%q): %w", v, err)
		}
		cfg.Concurrency = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		cfg.LogFormat = v
	}
	return cfg, nil
}

// Validate は値の範囲を確認します。
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("ポート番号が範囲外です: %d", c.Port))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("同時実行数は1以上である必要があります: %d", c.Concurrency))
	}
	return errors.Join(errs...)
}

// Addr は net.Listen に渡すアドレスを返します。
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
