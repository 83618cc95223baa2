package credstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"

	"nifri2/strip-control/internal/wifi"
)

// Fixed layout of the credentials: one file per key under a namespace
// directory. The channel hint is not stored.
const (
	Namespace = "wifi_creds"
	KeySSID   = "wifi_ssid"
	KeyPass   = "wifi_pass"
)

var ErrCorrupt = errors.New("credstore: stored credentials corrupt")

// Mount mounts a littlefs filesystem on dev, formatting it first if it has
// never been formatted.
func Mount(dev tinyfs.BlockDevice) (*littlefs.LFS, error) {
	fs := littlefs.New(dev)
	fs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 512,
		BlockCycles:   100,
	})
	if err := fs.Mount(); err == nil {
		return fs, nil
	}
	if err := fs.Format(); err != nil {
		return nil, fmt.Errorf("credstore: format: %w", err)
	}
	if err := fs.Mount(); err != nil {
		return nil, fmt.Errorf("credstore: mount: %w", err)
	}
	return fs, nil
}

// Store keeps Wi-Fi credentials on a mounted littlefs filesystem. It
// implements wifi.CredentialStore.
type Store struct {
	fs *littlefs.LFS
}

func New(fs *littlefs.LFS) *Store {
	return &Store{fs: fs}
}

func keyPath(key string) string {
	return "/" + Namespace + "/" + key
}

func (s *Store) Load() (wifi.Credentials, bool, error) {
	for _, key := range []string{KeySSID, KeyPass} {
		if _, err := s.fs.Stat(keyPath(key)); err != nil {
			return wifi.Credentials{}, false, nil
		}
	}
	ssid, err := s.read(KeySSID, wifi.MaxSSIDLen)
	if err != nil {
		return wifi.Credentials{}, false, err
	}
	pass, err := s.read(KeyPass, wifi.MaxPassLen)
	if err != nil {
		return wifi.Credentials{}, false, err
	}
	if !utf8.Valid(ssid) || !utf8.Valid(pass) {
		return wifi.Credentials{}, false, fmt.Errorf("%w: not utf-8", ErrCorrupt)
	}

	creds := wifi.Credentials{SSID: string(ssid), Pass: string(pass)}
	if err := creds.Validate(); err != nil {
		return wifi.Credentials{}, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return creds, true, nil
}

func (s *Store) read(key string, limit int) ([]byte, error) {
	f, err := s.fs.Open(keyPath(key))
	if err != nil {
		return nil, fmt.Errorf("credstore: open %s: %w", key, err)
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("credstore: read %s: %w", key, err)
	}
	if len(b) > limit {
		return nil, fmt.Errorf("%w: %s longer than %d bytes", ErrCorrupt, key, limit)
	}
	return b, nil
}

func (s *Store) Store(c wifi.Credentials) error {
	c = c.WithoutChannel()
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := s.fs.Stat("/" + Namespace); err != nil {
		if err := s.fs.Mkdir("/"+Namespace, 0777); err != nil {
			return fmt.Errorf("credstore: mkdir %s: %w", Namespace, err)
		}
	}
	if err := s.write(KeySSID, c.SSID); err != nil {
		return err
	}
	return s.write(KeyPass, c.Pass)
}

func (s *Store) write(key, value string) error {
	f, err := s.fs.OpenFile(keyPath(key), os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("credstore: open %s: %w", key, err)
	}
	if _, err := f.Write([]byte(value)); err != nil {
		f.Close()
		return fmt.Errorf("credstore: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("credstore: close %s: %w", key, err)
	}
	return nil
}

// Erase removes both keys. Erasing an empty store is not an error.
func (s *Store) Erase() error {
	for _, p := range []string{keyPath(KeySSID), keyPath(KeyPass), "/" + Namespace} {
		if _, err := s.fs.Stat(p); err != nil {
			continue
		}
		if err := s.fs.Remove(p); err != nil {
			return fmt.Errorf("credstore: remove %s: %w", p, err)
		}
	}
	return nil
}
