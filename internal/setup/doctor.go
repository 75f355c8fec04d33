// Package setup implements the environment preparation routine: verify a
// browser runtime exists, scaffold local files, fetch the managed
// browser engine, and print usage instructions. Only the runtime check
// is fatal; the install steps are best-effort.
package setup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// MissingDependencyError means the browser runtime the automation needs
// is not installed and cannot be detected.
type MissingDependencyError struct {
	Dependency string
	Hint       string
}

func (e *MissingDependencyError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("missing dependency: %s", e.Dependency)
	}
	return fmt.Sprintf("missing dependency: %s (%s)", e.Dependency, e.Hint)
}

// Params configures a Doctor. The function fields exist so tests can run
// the routine without a real browser or network; nil fields get the real
// implementations.
type Params struct {
	Logger  *zap.Logger
	Out     io.Writer
	DataDir string

	// BrowserBin pins an explicit browser binary, skipping detection.
	BrowserBin string

	// EnvExample is the template copied to .env when none exists.
	EnvExample string

	LookPath       func() (string, bool)
	BrowserVersion func(bin string) string
	InstallBrowser func(ctx context.Context) (string, error)
}

// Doctor runs the setup routine.
type Doctor struct {
	logger     *zap.Logger
	out        io.Writer
	dataDir    string
	browserBin string
	envExample string

	lookPath       func() (string, bool)
	browserVersion func(string) string
	installBrowser func(context.Context) (string, error)
}

// New creates a Doctor, filling in real detection and install functions
// for any Params left nil.
func New(p Params) *Doctor {
	d := &Doctor{
		logger:         p.Logger,
		out:            p.Out,
		dataDir:        p.DataDir,
		browserBin:     p.BrowserBin,
		envExample:     p.EnvExample,
		lookPath:       p.LookPath,
		browserVersion: p.BrowserVersion,
		installBrowser: p.InstallBrowser,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.dataDir == "" {
		d.dataDir = ".gymbook"
	}
	if d.envExample == "" {
		d.envExample = ".env.example"
	}
	if d.lookPath == nil {
		d.lookPath = launcher.LookPath
	}
	if d.browserVersion == nil {
		d.browserVersion = browserVersion
	}
	if d.installBrowser == nil {
		d.installBrowser = func(ctx context.Context) (string, error) {
			b := launcher.NewBrowser()
			b.Context = ctx
			return b.Get()
		}
	}
	return d
}

// Run executes the four setup steps in order. A missing browser runtime
// aborts before any install step; everything after is best-effort.
func (d *Doctor) Run(ctx context.Context) error {
	bin, err := d.checkBrowser()
	if err != nil {
		return err
	}

	d.scaffold()
	d.fetchEngine(ctx, bin)

	fmt.Fprint(d.out, Usage())
	return nil
}

// checkBrowser is step 1: find a runnable browser binary and report its
// version. Absence is the one fatal condition in the routine.
func (d *Doctor) checkBrowser() (string, error) {
	bin := d.browserBin
	if bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return "", &MissingDependencyError{
				Dependency: "browser runtime",
				Hint:       fmt.Sprintf("configured binary %s not found", bin),
			}
		}
	} else {
		found, ok := d.lookPath()
		if !ok {
			return "", &MissingDependencyError{
				Dependency: "browser runtime",
				Hint:       "install Chrome or Chromium, or set GYMBOOK_BROWSER_BIN",
			}
		}
		bin = found
	}

	version := d.browserVersion(bin)
	d.logger.Info("browser runtime found",
		zap.String("bin", bin), zap.String("version", version))
	fmt.Fprintf(d.out, "found browser: %s (%s)\n", bin, version)
	return bin, nil
}

// scaffold is step 2: create the data directory and seed .env from the
// example file. Never fatal.
func (d *Doctor) scaffold() {
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		d.logger.Warn("create data dir failed",
			zap.String("dir", d.dataDir), zap.Error(err))
	} else {
		fmt.Fprintf(d.out, "data directory ready: %s\n", d.dataDir)
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); err == nil {
		fmt.Fprintf(d.out, ".env already exists, leaving it alone\n")
		return
	}
	data, err := os.ReadFile(d.envExample)
	if err != nil {
		d.logger.Warn("env example not readable, skipping .env scaffold",
			zap.String("path", d.envExample), zap.Error(err))
		return
	}
	if err := os.WriteFile(envPath, data, 0o600); err != nil {
		d.logger.Warn("write .env failed", zap.Error(err))
		return
	}
	fmt.Fprintf(d.out, "created .env from %s, fill in your credentials\n",
		filepath.Base(d.envExample))
}

// fetchEngine is step 3: download the managed browser engine so runs do
// not depend on the system browser version. Never fatal; a usable system
// browser already exists at this point.
func (d *Doctor) fetchEngine(ctx context.Context, systemBin string) {
	path, err := d.installBrowser(ctx)
	if err != nil {
		d.logger.Warn("managed browser install failed, using system browser",
			zap.String("system_bin", systemBin), zap.Error(err))
		fmt.Fprintf(d.out, "managed browser install failed (using %s)\n", systemBin)
		return
	}
	fmt.Fprintf(d.out, "managed browser ready: %s\n", path)
}

// browserVersion asks the binary for its version string.
func browserVersion(bin string) string {
	out, err := exec.Command(bin, "--version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
