// Package webmin implements the sys.webmin module, which installs the
// webmin management console behind an nginx site at /_manage.
package webmin

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/platform/s3"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/runner"
)

// Name is the module identifier.
const Name = "sys.webmin"

const (
	// DefaultPackage is the webmin release installed by the module.
	DefaultPackage  = "webmin_1.680_all.deb"
	defaultCacheDir = "/var/cache/xtuple"

	sslDir     = "/srv/ssl"
	etcWebmin  = "/etc/webmin"
	modulesDir = "/usr/share/webmin"

	availableSite = "/etc/nginx/sites-available/webmin-site"
	enabledSite   = "/etc/nginx/sites-enabled/webmin-site"
)

// Option paths written or read by this module.
const (
	PackageKey  = "sys.webmin.package"
	CacheDirKey = "sys.webmin.cachedir"
	BucketKey   = "sys.webmin.bucket"

	EndpointKey  = "sys.webmin.endpoint"
	RegionKey    = "sys.webmin.region"
	PathStyleKey = "sys.webmin.pathstyle"
	AccessKeyKey = "sys.webmin.accesskey"
	SecretKeyKey = "sys.webmin.secretkey"

	ConfigFileKey       = "sys.webminConfigFile"
	CustomPathKey       = "sys.webminCustomPath"
	CustomConfigFileKey = "sys.webminCustomConfigFile"
	XtuplePathKey       = "sys.webminXtuplePath"
)

//go:embed templates
var templates embed.FS

// unusedModules are webmin modules removed after installation.
var unusedModules = []string{
	"bind8", "burner", "pserver", "exim", "fetchmail", "file", "grub",
	"jabber", "krb5", "ldap-client", "ldap-server", "ldap-useradmin",
	"mysql", "postfix", "qmailadmin", "iscsi-client", "iscsi-server",
	"iscsi-target", "ajaxterm", "adsl-client", "apache",
	"htaccess-htpasswd", "cpan", "pap", "ppp-client",
}

var configAppend = []string{
	"webprefix=/_manage",
	"webprefixnoredir=1",
	"referer=1",
}

var customConfig = []string{
	"display_mode=1",
	"columns=1",
	"params_cmd=0",
	"params_file=0",
	"sort=desc",
	"height=",
	"width=",
	"wrap=",
}

// Fetcher downloads an asset to a file.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string, fsys afero.Fs, dest string) error
}

// Task is the sys.webmin module.
type Task struct {
	fetcher Fetcher
	version string
}

// New returns the module. version is recorded in the custom command files
// when xt.version is not set.
func New(fetcher Fetcher, version string) *Task {
	return &Task{fetcher: fetcher, version: version}
}

// Name implements provisioning.Task.
func (t *Task) Name() string { return Name }

// Options implements provisioning.OptionDeclarer.
func (t *Task) Options() config.Schema {
	return config.Schema{
		{Name: "package", Namespace: "sys.webmin", Kind: config.KindString, Description: "Webmin package file name", Default: DefaultPackage},
		{Name: "cachedir", Namespace: "sys.webmin", Kind: config.KindString, Description: "Directory the webmin package is downloaded to", Default: defaultCacheDir},
		{Name: "bucket", Namespace: "sys.webmin", Kind: config.KindString, Description: "Asset bucket holding the webmin package", Default: s3.DefaultBucket},
		{Name: "endpoint", Namespace: "sys.webmin", Kind: config.KindString, Description: "Endpoint of an S3-compatible asset mirror"},
		{Name: "region", Namespace: "sys.webmin", Kind: config.KindString, Description: "Region of the asset bucket", Default: s3.DefaultRegion},
		{Name: "pathstyle", Namespace: "sys.webmin", Kind: config.KindBool, Description: "Use path-style addressing for the asset mirror", Default: false},
		{Name: "accesskey", Namespace: "sys.webmin", Kind: config.KindString, Description: "Access key for a private asset mirror"},
		{Name: "secretkey", Namespace: "sys.webmin", Kind: config.KindString, Description: "Secret key for a private asset mirror"},
	}
}

// StoreConfig returns the asset store settings held in opts. Unset keys
// leave the store anonymous.
func StoreConfig(opts *config.Options) s3.Config {
	return s3.Config{
		Endpoint:  opts.String(EndpointKey),
		Region:    opts.String(RegionKey),
		AccessKey: opts.String(AccessKeyKey),
		SecretKey: opts.String(SecretKeyKey),
		PathStyle: opts.Bool(PathStyleKey),
	}
}

// BeforeInstall sets the nginx and webmin locations and creates the SSL
// directory.
func (t *Task) BeforeInstall(ctx *provisioning.Context) error {
	if err := ctx.Fs.MkdirAll(sslDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", sslDir, err)
	}

	custom := filepath.Join(etcWebmin, "custom")
	values := []struct {
		path  string
		value string
	}{
		{"nginx.outkey", filepath.Join(sslDir, "xtremote.key")},
		{"nginx.outcrt", filepath.Join(sslDir, "xtremote.crt")},
		{"nginx.domain", "localhost"},
		{"nginx.availableSite", availableSite},
		{"nginx.enabledSite", enabledSite},
		{"sys.etcWebmin", etcWebmin},
		{ConfigFileKey, filepath.Join(etcWebmin, "config")},
		{CustomPathKey, custom},
		{CustomConfigFileKey, filepath.Join(custom, "config")},
		{XtuplePathKey, filepath.Join(etcWebmin, "xtuple")},
	}
	for _, v := range values {
		if err := ctx.Options.Set(v.path, v.value); err != nil {
			return err
		}
	}

	if t.version != "" {
		if _, err := ctx.Options.SetDefault("xt.version", t.version); err != nil {
			return err
		}
	}
	return nil
}

// BeforeTask creates the xtuple webmin directory.
func (t *Task) BeforeTask(ctx *provisioning.Context) error {
	dir := ctx.Options.String(XtuplePathKey)
	if err := ctx.Fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// ExecuteTask installs the webmin package, trims its modules and writes the
// xTuple configuration, custom commands and nginx site.
func (t *Task) ExecuteTask(ctx *provisioning.Context) error {
	deb, err := t.fetchPackage(ctx)
	if err != nil {
		return err
	}
	if err := runner.FailFast(ctx, ctx.Executor, ctx.Logger, []runner.Step{
		{Name: "webmin package install", Command: "dpkg --install " + deb},
	}); err != nil {
		return err
	}

	if err := deleteUnusedModules(ctx); err != nil {
		return err
	}
	if err := writeConfiguration(ctx); err != nil {
		return err
	}
	if err := installCustomCommands(ctx); err != nil {
		return err
	}
	return installNginxSite(ctx)
}

func (t *Task) fetchPackage(ctx *provisioning.Context) (string, error) {
	name := ctx.Options.String(PackageKey)
	deb := filepath.Join(ctx.Options.String(CacheDirKey), name)

	exists, err := afero.Exists(ctx.Fs, deb)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", deb, err)
	}
	if exists {
		ctx.Logger.V(1).Info("webmin package present", "file", deb)
		return deb, nil
	}
	if t.fetcher == nil {
		return "", fmt.Errorf("webmin package %s not found and no asset store configured", deb)
	}

	ctx.Logger.Info("downloading webmin package", "key", name)
	if err := t.fetcher.Fetch(ctx, ctx.Options.String(BucketKey), name, ctx.Fs, deb); err != nil {
		return "", err
	}
	return deb, nil
}

func deleteUnusedModules(ctx *provisioning.Context) error {
	for _, m := range unusedModules {
		dir := filepath.Join(modulesDir, m)
		if err := ctx.Fs.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove webmin module %s: %w", m, err)
		}
	}
	ctx.Logger.V(1).Info("removed unused webmin modules", "count", len(unusedModules))
	return nil
}

// writeConfiguration appends the reverse-proxy settings to the webmin
// config once and replaces the custom commands config.
func writeConfiguration(ctx *provisioning.Context) error {
	name := ctx.Options.String(ConfigFileKey)
	current, err := afero.ReadFile(ctx.Fs, name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if !strings.Contains(string(current), configAppend[0]) {
		if err := ctx.Fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(name), err)
		}
		f, err := ctx.Fs.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		block := strings.Join(configAppend, "\n") + "\n"
		if len(current) > 0 && !strings.HasSuffix(string(current), "\n") {
			block = "\n" + block
		}
		_, werr := f.WriteString(block)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("failed to write %s: %w", name, werr)
		}
	}

	custom := ctx.Options.String(CustomConfigFileKey)
	if err := writeFile(ctx, custom, []byte(strings.Join(customConfig, "\n")+"\n")); err != nil {
		return err
	}
	return nil
}

func installCustomCommands(ctx *provisioning.Context) error {
	menu, err := fs.ReadFile(templates, "templates/editions.menu")
	if err != nil {
		return fmt.Errorf("failed to read editions menu: %w", err)
	}
	if err := writeFile(ctx, filepath.Join(ctx.Options.String(XtuplePathKey), "editions.menu"), menu); err != nil {
		return err
	}

	custom := ctx.Options.String(CustomPathKey)
	for _, f := range []struct{ tmpl, target string }{
		{"templates/server-install-file.cmd.tmpl", "1001.cmd"},
		{"templates/server-install-file.html.tmpl", "1001.html"},
	} {
		content, err := config.RenderFile(templates, f.tmpl, ctx.Options)
		if err != nil {
			return err
		}
		if err := writeFile(ctx, filepath.Join(custom, f.target), []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

// installNginxSite generates a self-signed certificate when none exists and
// writes the webmin site.
func installNginxSite(ctx *provisioning.Context) error {
	crt := ctx.Options.String("nginx.outcrt")
	exists, err := afero.Exists(ctx.Fs, crt)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", crt, err)
	}
	if !exists {
		cmd, err := config.Render("openssl req -x509 -newkey rsa:2048 -nodes -days 365"+
			" -subj '/CN={{.nginx.domain}}' -keyout {{.nginx.outkey}} -out {{.nginx.outcrt}}", ctx.Options)
		if err != nil {
			return err
		}
		if err := runner.FailFast(ctx, ctx.Executor, ctx.Logger, []runner.Step{
			{Name: "self-signed certificate", Command: cmd},
		}); err != nil {
			return err
		}
	}

	site, err := config.RenderFile(templates, "templates/webmin-site.tmpl", ctx.Options)
	if err != nil {
		return err
	}
	available := ctx.Options.String("nginx.availableSite")
	if err := writeFile(ctx, available, []byte(site)); err != nil {
		return err
	}
	return enableSite(ctx, available, ctx.Options.String("nginx.enabledSite"))
}

// enableSite links the site into sites-enabled. Filesystems without
// symlink support get a copy.
func enableSite(ctx *provisioning.Context, available, enabled string) error {
	if err := ctx.Fs.MkdirAll(filepath.Dir(enabled), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(enabled), err)
	}
	if linker, ok := ctx.Fs.(afero.Linker); ok {
		_ = ctx.Fs.Remove(enabled)
		if err := linker.SymlinkIfPossible(available, enabled); err != nil {
			return fmt.Errorf("failed to enable site %s: %w", enabled, err)
		}
		return nil
	}

	data, err := afero.ReadFile(ctx.Fs, available)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", available, err)
	}
	return writeFile(ctx, enabled, data)
}

// AfterTask reloads nginx and restarts webmin.
func (t *Task) AfterTask(ctx *provisioning.Context) error {
	return runner.FailFast(ctx, ctx.Executor, ctx.Logger, []runner.Step{
		{Name: "nginx reload", Command: "service nginx reload"},
		{Name: "webmin restart", Command: "service webmin restart"},
	})
}

// Uninstall removes the xTuple custom command files. Webmin itself stays
// installed.
func (t *Task) Uninstall(ctx *provisioning.Context) error {
	custom := ctx.Options.String(CustomPathKey)
	if custom == "" {
		custom = filepath.Join(etcWebmin, "custom")
	}
	xtuple := ctx.Options.String(XtuplePathKey)
	if xtuple == "" {
		xtuple = filepath.Join(etcWebmin, "xtuple")
	}

	var errs []error
	for _, name := range []string{
		filepath.Join(xtuple, "editions.menu"),
		filepath.Join(custom, "1001.cmd"),
		filepath.Join(custom, "1001.html"),
	} {
		err := ctx.Fs.Remove(name)
		switch {
		case err == nil:
			ctx.Logger.Info("removed", "file", name)
		case errors.Is(err, os.ErrNotExist):
			ctx.Logger.Info("file already absent", "level", "warn", "file", name)
		default:
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func writeFile(ctx *provisioning.Context, name string, data []byte) error {
	if err := ctx.Fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(name), err)
	}
	if err := afero.WriteFile(ctx.Fs, name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

var (
	_ provisioning.BeforeInstaller = (*Task)(nil)
	_ provisioning.BeforeTasker    = (*Task)(nil)
	_ provisioning.TaskExecutor    = (*Task)(nil)
	_ provisioning.AfterTasker     = (*Task)(nil)
	_ provisioning.Uninstaller     = (*Task)(nil)
)

var _ Fetcher = (*s3.Client)(nil)
