package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	} else if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "backend.base_url must be an absolute URL")
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		errs = append(errs, "backend.timeout_seconds must be > 0")
	}
	if cfg.Retry.MaxRounds <= 0 {
		errs = append(errs, "retry.max_rounds must be > 0")
	}

	for i, r := range cfg.Prompts.Rules {
		if r.Category == "" {
			errs = append(errs, fmt.Sprintf("prompts.rules[%d].category is required", i))
		}
		if len(r.Any) == 0 {
			errs = append(errs, fmt.Sprintf("prompts.rules[%d].any must have at least 1 term", i))
		}
		for j, term := range r.Any {
			if term == "" {
				errs = append(errs, fmt.Sprintf("prompts.rules[%d].any[%d] cannot be empty", i, j))
			}
		}
		switch r.Type {
		case "", "text":
			if len(r.Options) > 0 {
				errs = append(errs, fmt.Sprintf("prompts.rules[%d] has options but type is text", i))
			}
		case "select", "radio":
			if len(r.Options) == 0 {
				errs = append(errs, fmt.Sprintf("prompts.rules[%d].options must have at least 1 option for type %s", i, r.Type))
			}
		default:
			errs = append(errs, fmt.Sprintf("prompts.rules[%d].type must be text, select or radio", i))
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + joinLines(errs))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}

func joinLines(lines []string) string {
	out := ""
	for i, s := range lines {
		if i > 0 {
			out += "\n- "
		}
		out += s
	}
	return out
}
