package provider

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/doeshing/spechealth/internal/ports"
)

// Provider kinds understood by New.
const (
	KindLocal  = "local"
	KindMemory = "memory"
)

// ErrOutsideRepository is returned for paths that escape the repository root.
var ErrOutsideRepository = errors.New("path escapes repository root")

// FSProvider serves repository content from an afero filesystem rooted at the repository.
type FSProvider struct {
	fs       afero.Fs
	kind     string
	repoPath string
}

// New builds a provider by kind. Memory providers start empty.
func New(kind, repoPath string) (*FSProvider, error) {
	switch strings.ToLower(kind) {
	case "", KindLocal:
		return NewLocal(repoPath)
	case KindMemory:
		return NewMemory(nil), nil
	default:
		return nil, errors.Newf("unknown provider type %q", kind)
	}
}

// NewLocal serves files from a directory on disk.
func NewLocal(repoPath string) (*FSProvider, error) {
	if repoPath == "" {
		repoPath = "."
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", repoPath)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "open repository %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Newf("repository path %s is not a directory", abs)
	}
	return &FSProvider{
		fs:       afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), abs)),
		kind:     KindLocal,
		repoPath: abs,
	}, nil
}

// NewMemory serves the given files (path -> content) from memory.
func NewMemory(files map[string]string) *FSProvider {
	fs := afero.NewMemMapFs()
	for name, content := range files {
		p := "/" + strings.TrimPrefix(path.Clean("/"+name), "/")
		_ = fs.MkdirAll(path.Dir(p), 0o755)
		_ = afero.WriteFile(fs, p, []byte(content), 0o644)
	}
	return &FSProvider{fs: fs, kind: KindMemory}
}

// FromFs wraps an arbitrary afero filesystem, e.g. a remote mirror.
func FromFs(fs afero.Fs, kind, repoPath string) *FSProvider {
	return &FSProvider{fs: fs, kind: kind, repoPath: repoPath}
}

func (p *FSProvider) Type() string     { return p.kind }
func (p *FSProvider) RepoPath() string { return p.repoPath }

// ReadFile returns the file content; missing files are an error.
func (p *FSProvider) ReadFile(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := p.clean(name)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(p.fs, clean)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", name)
	}
	return string(data), nil
}

// FileExists reports whether name exists and is a regular file.
func (p *FSProvider) FileExists(ctx context.Context, name string) (bool, error) {
	info, ok, err := p.stat(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	return !info.IsDir(), nil
}

// DirectoryExists reports whether name exists and is a directory.
func (p *FSProvider) DirectoryExists(ctx context.Context, name string) (bool, error) {
	info, ok, err := p.stat(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	return info.IsDir(), nil
}

// ListFiles lists the direct children of a directory, sorted by name.
func (p *FSProvider) ListFiles(ctx context.Context, dir string) ([]ports.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := p.clean(dir)
	if err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(p.fs, clean)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	base := strings.TrimPrefix(clean, "/")
	entries := make([]ports.FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, ports.FileEntry{
			Name:        info.Name(),
			Path:        path.Join(base, info.Name()),
			IsDirectory: info.IsDir(),
			IsFile:      info.Mode().IsRegular(),
		})
	}
	return entries, nil
}

func (p *FSProvider) stat(ctx context.Context, name string) (os.FileInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	clean, err := p.clean(name)
	if err != nil {
		return nil, false, err
	}
	info, err := p.fs.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "stat %s", name)
	}
	return info, true, nil
}

// clean turns a repository-relative path into an absolute fs path.
func (p *FSProvider) clean(name string) (string, error) {
	name = filepath.ToSlash(strings.TrimSpace(name))
	if name == "" || name == "." {
		return "/", nil
	}
	if strings.HasPrefix(name, "/") {
		name = strings.TrimPrefix(name, "/")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", errors.Wrapf(ErrOutsideRepository, "%s", name)
		}
	}
	return path.Clean("/" + name), nil
}

var _ ports.Provider = (*FSProvider)(nil)
