package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadCredentials reads the credential pool from an env file (KEY=token per line).
// Pool order is file order; a key repeated on several lines yields one
// credential per line.
func LoadCredentials(path string) ([]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds, err := parseCredentialLines(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("no credentials found in %s", path)
	}
	return creds, nil
}

// ParseCredentials reads the credential pool from env-formatted text
func ParseCredentials(raw string) ([]Credential, error) {
	creds, err := parseCredentialLines(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("no credentials found")
	}
	return creds, nil
}

// parseCredentialLines hands each assignment to godotenv on its own, since
// its map result drops both order and repeated keys
func parseCredentialLines(raw string) ([]Credential, error) {
	var creds []Credential

	scanner := bufio.NewScanner(strings.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		values, err := godotenv.Unmarshal(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		for name, value := range values {
			token := strings.TrimSpace(value)
			if token == "" {
				continue
			}
			creds = append(creds, Credential{Name: name, Token: token})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return creds, nil
}
