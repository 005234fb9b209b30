// Package service installs todocoach as a macOS launchd agent so the bot
// keeps running across logins.
package service

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
)

const (
	Label     = "com.todocoach.bot"
	plistName = Label + ".plist"
)

// Installer holds the paths and commands used to manage the agent.
type Installer struct {
	Home    string
	BinDest string
	// EnvFile is the runtime env file seeded from ./.env on install.
	EnvFile string
	Out     io.Writer
	// Launchctl runs launchctl; replaced in tests.
	Launchctl func(args ...string) error
}

func NewInstaller(envFile string) (*Installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home dir: %w", err)
	}
	return &Installer{
		Home:      home,
		BinDest:   "/usr/local/bin/todocoach",
		EnvFile:   envFile,
		Out:       os.Stdout,
		Launchctl: launchctl,
	}, nil
}

func (in *Installer) plistPath() string {
	return filepath.Join(in.Home, "Library", "LaunchAgents", plistName)
}

func (in *Installer) stdoutLogPath() string {
	return filepath.Join(in.Home, "Library", "Logs", "todocoach-stdout.log")
}

func (in *Installer) stderrLogPath() string {
	return filepath.Join(in.Home, "Library", "Logs", "todocoach-stderr.log")
}

// Install copies the running binary to BinDest, seeds EnvFile from ./.env if
// needed, writes the launchd plist and loads it.
func (in *Installer) Install() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	if err := copyFile(exe, in.BinDest, 0755); err != nil {
		return fmt.Errorf("copying binary to %s: %w", in.BinDest, err)
	}
	fmt.Fprintf(in.Out, "installed binary to %s\n", in.BinDest)

	if err := in.seedEnvFile(".env"); err != nil {
		return err
	}

	plist, err := in.renderPlist(in.resolveWorkDir())
	if err != nil {
		return fmt.Errorf("generating plist: %w", err)
	}

	// Unload existing plist if present (ignore errors)
	if _, err := os.Stat(in.plistPath()); err == nil {
		_ = in.Launchctl("unload", in.plistPath())
	}
	if err := os.MkdirAll(filepath.Dir(in.plistPath()), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(in.plistPath(), []byte(plist), 0644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	fmt.Fprintf(in.Out, "wrote plist to %s\n", in.plistPath())

	if err := in.Launchctl("load", in.plistPath()); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	fmt.Fprintln(in.Out, "service loaded and will start on login")
	return nil
}

func (in *Installer) seedEnvFile(src string) error {
	if _, err := os.Stat(in.EnvFile); err == nil {
		fmt.Fprintf(in.Out, "config already exists at %s\n", in.EnvFile)
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(in.EnvFile), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(in.EnvFile, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(in.Out, "seeded config from %s -> %s\n", src, in.EnvFile)
	return nil
}

// resolveWorkDir keeps the current directory when the runtime config uses a
// relative DATABASE_PATH, otherwise the env file's directory.
func (in *Installer) resolveWorkDir() string {
	envVars, _ := godotenv.Read(in.EnvFile)
	if dbPath, ok := envVars["DATABASE_PATH"]; ok && !filepath.IsAbs(dbPath) {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return filepath.Dir(in.EnvFile)
}

// Uninstall unloads the plist, removes it, and removes the binary.
func (in *Installer) Uninstall() error {
	if _, err := os.Stat(in.plistPath()); err == nil {
		if err := in.Launchctl("unload", in.plistPath()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: unload failed: %v\n", err)
		}
		if err := os.Remove(in.plistPath()); err != nil {
			return fmt.Errorf("removing plist: %w", err)
		}
		fmt.Fprintf(in.Out, "removed %s\n", in.plistPath())
	} else {
		fmt.Fprintln(in.Out, "plist not found, skipping")
	}

	if _, err := os.Stat(in.BinDest); err == nil {
		if err := os.Remove(in.BinDest); err != nil {
			return fmt.Errorf("removing binary: %w", err)
		}
		fmt.Fprintf(in.Out, "removed %s\n", in.BinDest)
	} else {
		fmt.Fprintf(in.Out, "binary not found at %s, skipping\n", in.BinDest)
	}

	fmt.Fprintln(in.Out, "uninstalled")
	return nil
}

func (in *Installer) Start() error {
	return in.Launchctl("start", Label)
}

func (in *Installer) Stop() error {
	return in.Launchctl("stop", Label)
}

func (in *Installer) Restart() error {
	_ = in.Stop()
	return in.Start()
}

func (in *Installer) Status() error {
	if err := in.Launchctl("list", Label); err != nil {
		fmt.Fprintln(in.Out, "service is not loaded")
	}
	return nil
}

// Logs tails both stdout and stderr log files.
func (in *Installer) Logs() error {
	cmd := exec.Command("tail", "-f", in.stdoutLogPath(), in.stderrLogPath())
	cmd.Stdout = in.Out
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func launchctl(args ...string) error {
	cmd := exec.Command("launchctl", args...)
	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, perm)
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>run</string>
	</array>
	<key>EnvironmentVariables</key>
	<dict>
		<key>TODO_ENV_FILE</key>
		<string>{{.EnvFile}}</string>
	</dict>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

type plistData struct {
	Label     string
	BinPath   string
	EnvFile   string
	WorkDir   string
	StdoutLog string
	StderrLog string
}

func (in *Installer) renderPlist(workDir string) (string, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, plistData{
		Label:     Label,
		BinPath:   in.BinDest,
		EnvFile:   in.EnvFile,
		WorkDir:   workDir,
		StdoutLog: in.stdoutLogPath(),
		StderrLog: in.stderrLogPath(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
