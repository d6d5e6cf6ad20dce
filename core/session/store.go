package session

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// FileStore keeps the session in a JSON file, the CLI counterpart of the browser's local storage.
type FileStore struct {
	path string
}

var _ Store = FileStore{}

func NewFileStore(path string) FileStore {
	return FileStore{path: path}
}

func (fs FileStore) Load() (Data, error) {
	if _, err := os.Stat(fs.path); os.IsNotExist(err) {
		return Data{}, ErrNoSession
	}
	v := fs.viper()
	if err := v.ReadInConfig(); err != nil {
		return Data{}, errors.Wrapf(err, "reading %s", fs.path)
	}
	data := Data{Token: v.GetString("token")}
	if data.Token == "" {
		return Data{}, ErrNoSession
	}
	if err := v.UnmarshalKey("user", &data.User); err != nil {
		return Data{}, errors.Wrap(err, "decoding user")
	}
	return data, nil
}

func (fs FileStore) Save(data Data) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	v := fs.viper()
	v.Set("token", data.Token)
	v.Set("user", map[string]interface{}{
		"id":       data.User.ID,
		"username": data.User.Username,
		"email":    data.User.Email,
		"nombre":   data.User.Name,
		"apellido": data.User.Surname,
		"rol":      data.User.Role,
	})
	if err := v.WriteConfigAs(fs.path); err != nil {
		return errors.Wrapf(err, "writing %s", fs.path)
	}
	return os.Chmod(fs.path, 0o600)
}

func (fs FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", fs.path)
	}
	return nil
}

func (fs FileStore) viper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(fs.path)
	v.SetConfigType("json")
	return v
}
