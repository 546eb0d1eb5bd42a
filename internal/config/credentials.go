package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	"github.com/go-playground/validator/v10"
)

const (
	// podioSection is the INI section holding the Podio application keys.
	podioSection = "APIKey"

	defaultCredentialsDir = ".ssh"
	defaultUserFile       = "qualtrics_user"
	defaultTokenFile      = "qualtrics_token"
	defaultPodioFile      = "idrk.cfg"
)

var ErrEmptyCredentialFile = errors.New("credential file is empty")

type Credentials struct {
	Qualtrics QualtricsCredentials
	Podio     PodioCredentials
}

type QualtricsCredentials struct {
	// User is the Qualtrics account identifier.
	User  string `validate:"required"`
	Token string `validate:"required"`
}

// PodioCredentials maps the [APIKey] section of the Podio configuration file.
// Authentication uses the password grant when Username is set and the app
// grant (AppID + AppToken) otherwise.
type PodioCredentials struct {
	ClientID           string `ini:"etl" validate:"required"`
	ClientSecret       string `ini:"key" validate:"required"`
	AppID              string `ini:"app" validate:"required_without=Username"`
	AppToken           string `ini:"app_token" validate:"required_without=Username"`
	ProjectsAppID      int64  `ini:"projects" validate:"gt=0"`
	ConsultationsAppID int64  `ini:"consultations" validate:"gt=0"`
	Username           string `ini:"username"`
	Password           string `ini:"password" validate:"required_with=Username"`
}

func (p PodioCredentials) UsePasswordGrant() bool {
	return p.Username != ""
}

// LoadCredentials reads the Qualtrics secrets and the Podio key file named by cfg,
// falling back to the files under ~/.ssh.
func LoadCredentials(cfg *Config) (*Credentials, error) {
	userFile, tokenFile, podioFile, err := credentialPaths(cfg)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{}
	if creds.Qualtrics.User, err = readFirstLine(userFile); err != nil {
		return nil, &ConfigurationError{Source: userFile, Err: err}
	}
	if creds.Qualtrics.Token, err = readFirstLine(tokenFile); err != nil {
		return nil, &ConfigurationError{Source: tokenFile, Err: err}
	}

	podio, err := readPodioCredentials(podioFile)
	if err != nil {
		return nil, &ConfigurationError{Source: podioFile, Err: err}
	}
	creds.Podio = *podio

	if err := validator.New().Struct(creds); err != nil {
		return nil, &ConfigurationError{Source: "credentials", Err: err}
	}

	return creds, nil
}

func credentialPaths(cfg *Config) (user, token, podio string, err error) {
	user, token, podio = cfg.Qualtrics.UserFile, cfg.Qualtrics.TokenFile, cfg.Podio.ConfigFile
	if user != "" && token != "" && podio != "" {
		return user, token, podio, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", "", &ConfigurationError{Source: "home directory", Err: err}
	}
	dir := filepath.Join(home, defaultCredentialsDir)
	if user == "" {
		user = filepath.Join(dir, defaultUserFile)
	}
	if token == "" {
		token = filepath.Join(dir, defaultTokenFile)
	}
	if podio == "" {
		podio = filepath.Join(dir, defaultPodioFile)
	}
	return user, token, podio, nil
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrEmptyCredentialFile
	}

	line := strings.TrimRight(scanner.Text(), " \t\r")
	if line == "" {
		return "", ErrEmptyCredentialFile
	}
	return line, nil
}

func readPodioCredentials(path string) (*PodioCredentials, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	if !file.HasSection(podioSection) {
		return nil, fmt.Errorf("section [%s] not found", podioSection)
	}

	creds := &PodioCredentials{}
	if err := file.Section(podioSection).MapTo(creds); err != nil {
		return nil, fmt.Errorf("reading section [%s]: %w", podioSection, err)
	}
	return creds, nil
}
