package vpn

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sveliz/nordctl/api"
	"github.com/sveliz/nordctl/common"
)

// CDN paths for OpenVPN profiles.
const (
	profilePathFmt = "/configs/files/ovpn_udp/servers/%s.udp.ovpn"
	archivePath    = "/configs/archives/servers/ovpn.zip"
)

// ConfigName converts a server hostname to its Tunnelblick configuration
// name. The bundle directory is named after it with the .tblk extension;
// this is also the string the scripting bridge addresses.
func ConfigName(hostname string) string {
	return api.NormalizeHostname(hostname) + common.ConfigNameSuffix
}

// Builder downloads OpenVPN profiles and assembles .tblk bundles in a
// staging directory before handing them off to Tunnelblick.
type Builder struct {
	stagingDir string
	cdnBaseURL string
	client     *http.Client
	exec       Executor

	// Tunnelblick's configuration stores, overridable in tests.
	userStore   string
	sharedStore string
}

// NewBuilder creates a bundle builder staging into stagingDir. An empty
// cdnBaseURL selects the public CDN; a nil executor selects os/exec.
func NewBuilder(stagingDir, cdnBaseURL string, exec Executor) (*Builder, error) {
	if stagingDir == "" {
		stagingDir = "./configs"
	}
	if cdnBaseURL == "" {
		cdnBaseURL = common.DefaultCDNBaseURL
	}
	if exec == nil {
		exec = NewExecutor()
	}
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, common.WrapError(err, "failed to create staging directory")
	}

	home, _ := os.UserHomeDir()
	return &Builder{
		stagingDir:  stagingDir,
		cdnBaseURL:  strings.TrimRight(cdnBaseURL, "/"),
		client:      &http.Client{}, // redirects followed; timeouts are per-request contexts
		exec:        exec,
		userStore:   filepath.Join(home, "Library", "Application Support", "Tunnelblick", "Configurations"),
		sharedStore: "/Library/Application Support/Tunnelblick/Shared",
	}, nil
}

// DownloadProfile fetches the OpenVPN profile for a server into the
// staging directory and returns its path.
func (b *Builder) DownloadProfile(ctx context.Context, hostname string) (string, error) {
	hostname = api.NormalizeHostname(hostname)
	url := b.cdnBaseURL + fmt.Sprintf(profilePathFmt, hostname)
	outPath := filepath.Join(b.stagingDir, hostname+common.ConfigNameSuffix+".ovpn")

	if err := b.fetch(ctx, url, outPath, common.RequestTimeout); err != nil {
		return "", err
	}
	common.LogDebug("downloaded profile for %s", hostname)
	return outPath, nil
}

// BuildBundle constructs the .tblk bundle for a downloaded profile. The
// bundle is assembled in a scratch directory and moved into place, so a
// half-written bundle never replaces an intact one. The .pass file is
// written with mode 0600 before anything can pick the bundle up; the
// autoLogin marker is touched last.
func (b *Builder) BuildBundle(profilePath, username, password string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(profilePath), ".ovpn") // e.g. us5090.nordvpn.com.udp
	bundlePath := filepath.Join(b.stagingDir, name+common.BundleExtension)

	stage := filepath.Join(b.stagingDir, ".staging-"+uuid.NewString())
	if err := os.MkdirAll(stage, 0755); err != nil {
		return "", common.WrapError(err, "failed to create bundle staging directory")
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(stage)
		}
	}()

	if err := copyFile(profilePath, filepath.Join(stage, filepath.Base(profilePath))); err != nil {
		return "", common.WrapError(err, "failed to copy profile into bundle")
	}

	passFile := filepath.Join(stage, name+".pass")
	content := fmt.Sprintf("%s\n%s\n", username, password)
	if err := os.WriteFile(passFile, []byte(content), 0600); err != nil {
		return "", common.WrapError(err, "failed to write credentials file")
	}

	marker, err := os.OpenFile(filepath.Join(stage, "autoLogin"), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", common.WrapError(err, "failed to create autoLogin marker")
	}
	marker.Close()

	// Replace any previous bundle of the same name atomically.
	if err := os.RemoveAll(bundlePath); err != nil {
		return "", common.WrapError(err, "failed to remove previous bundle")
	}
	if err := os.Rename(stage, bundlePath); err != nil {
		return "", common.WrapError(err, "failed to move bundle into place")
	}
	committed = true

	return bundlePath, nil
}

// InstallBundle hands the bundle to the default handler (Tunnelblick).
// Success means the handoff worked, not that the GUI accepted the bundle;
// the user may see a confirmation dialog on first install.
func (b *Builder) InstallBundle(ctx context.Context, bundlePath string) error {
	if err := b.exec.Run(ctx, "open", bundlePath); err != nil {
		return common.WrapError(err, "failed to open bundle with Tunnelblick")
	}
	return nil
}

// ListInstalledBundles enumerates bundle stems present in Tunnelblick's
// per-user and shared configuration stores.
func (b *Builder) ListInstalledBundles() ([]string, error) {
	var stems []string
	for _, dir := range []string{b.userStore, b.sharedStore} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, common.WrapError(err, "failed to read Tunnelblick store")
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), common.BundleExtension) {
				stems = append(stems, strings.TrimSuffix(e.Name(), common.BundleExtension))
			}
		}
	}
	return stems, nil
}

// SetupServer downloads, packages, and installs a server configuration,
// returning the Tunnelblick config name to connect with.
func (b *Builder) SetupServer(ctx context.Context, hostname, username, password string) (string, error) {
	hostname = api.NormalizeHostname(hostname)

	profilePath, err := b.DownloadProfile(ctx, hostname)
	if err != nil {
		return "", err
	}

	bundlePath, err := b.BuildBundle(profilePath, username, password)
	if err != nil {
		return "", err
	}

	if err := b.InstallBundle(ctx, bundlePath); err != nil {
		return "", err
	}

	return ConfigName(hostname), nil
}

// DownloadArchive fetches the provider's full ovpn.zip archive and
// extracts the UDP profiles into the staging directory. When countryCode
// is given, only that country's profiles are extracted. The archive is
// around 40MB; prefer DownloadProfile for single servers.
func (b *Builder) DownloadArchive(ctx context.Context, countryCode string) (string, error) {
	archiveFile := filepath.Join(b.stagingDir, "ovpn.zip")
	if err := b.fetch(ctx, b.cdnBaseURL+archivePath, archiveFile, common.ArchiveTimeout); err != nil {
		return "", err
	}
	defer os.Remove(archiveFile)

	extractDir := filepath.Join(b.stagingDir, "ovpn_udp")
	if err := os.RemoveAll(extractDir); err != nil {
		return "", common.WrapError(err, "failed to clear extraction directory")
	}

	prefix := "ovpn_udp/"
	if countryCode != "" {
		prefix += strings.ToLower(countryCode)
	}

	zr, err := zip.OpenReader(archiveFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrArchive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) || f.FileInfo().IsDir() {
			continue
		}
		if err := extractZipEntry(f, b.stagingDir); err != nil {
			return "", err
		}
	}

	return extractDir, nil
}

// extractZipEntry writes one archive entry below destDir, refusing paths
// that would escape it.
func extractZipEntry(f *zip.File, destDir string) error {
	cleaned := filepath.Clean(f.Name)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("%w: unsafe entry path %q", common.ErrArchive, f.Name)
	}
	target := filepath.Join(destDir, cleaned)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return common.WrapError(err, "failed to create extraction directory")
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrArchive, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return common.WrapError(err, "failed to create extracted file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: %v", common.ErrArchive, err)
	}
	return nil
}

// fetch downloads url into outPath with the given timeout, following
// redirects, writing through a temp file so a failed download never
// leaves a truncated target.
func (b *Builder) fetch(ctx context.Context, url, outPath string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("User-Agent", common.AppName)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &common.HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".download-*")
	if err != nil {
		return common.WrapError(err, "failed to create download temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return common.WrapError(err, "failed to finish download")
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return common.WrapError(err, "failed to move download into place")
	}
	return nil
}

// copyFile copies src to dst preserving nothing but the content.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
