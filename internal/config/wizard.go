package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard starting from base and
// saves the result to path.
func RunWizard(base *Config, path string) (*Config, error) {
	fmt.Println("Welcome to frontdesk! Let's configure the help desk.")
	fmt.Println()

	cfg := *base

	// 1. Database.
	dbPrompt := promptui.Prompt{
		Label:   "Database path",
		Default: cfg.DatabasePath,
	}
	dbPath, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	cfg.DatabasePath = dbPath

	// 2. Timeout.
	timeoutPrompt := promptui.Prompt{
		Label:    "Minutes a question may wait for a supervisor",
		Default:  strconv.Itoa(cfg.TimeoutMinutes),
		Validate: positiveInt,
	}
	timeoutStr, err := timeoutPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	cfg.TimeoutMinutes, _ = strconv.Atoi(timeoutStr)
	if cfg.SweepInterval() >= cfg.Timeout() {
		cfg.SweepIntervalSeconds = cfg.TimeoutMinutes * 60 / 2
	}

	// 3. Supervisor alerts.
	alertPrompt := promptui.Select{
		Label: "How should the supervisor be alerted?",
		Items: []string{
			"dashboard only",
			"dashboard and webhook",
		},
	}
	alertIdx, _, err := alertPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("alert selection: %w", err)
	}
	cfg.Notify.SupervisorWebhook = ""
	if alertIdx == 1 {
		hookPrompt := promptui.Prompt{
			Label:    "Supervisor webhook URL",
			Default:  base.Notify.SupervisorWebhook,
			Validate: httpURL,
		}
		hook, err := hookPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		cfg.Notify.SupervisorWebhook = hook
	}

	// 4. Answer delivery over Redis.
	redisPrompt := promptui.Prompt{
		Label:   "Redis address for answer delivery (blank to skip)",
		Default: cfg.Notify.RedisAddr,
	}
	redisAddr, err := redisPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("redis address: %w", err)
	}
	cfg.Notify.RedisAddr = redisAddr

	// 5. Port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: positiveInt,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return &cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("enter a positive whole number")
	}
	return nil
}

func httpURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http:// or https:// URL")
	}
	return nil
}
