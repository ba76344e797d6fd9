/*
Copyright the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package auth authenticates API callers by bcrypt-hashed API keys and
// authorizes restore requests against the clusters and scenarios each
// key is allowed to touch.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/apimachinery/pkg/util/sets"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
)

// keyPrefixLength is the number of leading characters of a raw key used to
// look up its hash.
const keyPrefixLength = 8

// APIKey is the stored form of an API key.
type APIKey struct {
	Name      string     `yaml:"name"`
	Prefix    string     `yaml:"prefix"`
	Hash      string     `yaml:"hash"`
	Clusters  []string   `yaml:"clusters"`
	Scenarios []string   `yaml:"scenarios"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

// Authenticator resolves a bearer token to a principal name.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Authorizer decides whether a principal may run a restore request.
type Authorizer interface {
	Authorize(principal string, req *restorev1.RestoreRequest) error
}

type principal struct {
	key       APIKey
	clusters  []glob.Glob
	scenarios sets.Set[string]
}

// KeyStore is an Authenticator and Authorizer over a fixed set of API keys.
type KeyStore struct {
	now func() time.Time

	byPrefix map[string][]*principal
	byName   map[string]*principal
}

// NewKeyStore validates keys and returns a KeyStore serving them.
func NewKeyStore(keys []APIKey) (*KeyStore, error) {
	s := &KeyStore{
		now:      time.Now,
		byPrefix: make(map[string][]*principal),
		byName:   make(map[string]*principal),
	}

	for _, key := range keys {
		if key.Name == "" {
			return nil, errors.New("api key name must not be empty")
		}
		if _, ok := s.byName[key.Name]; ok {
			return nil, errors.Errorf("duplicate api key name %q", key.Name)
		}
		if len(key.Prefix) != keyPrefixLength {
			return nil, errors.Errorf("api key %q: prefix must be %d characters", key.Name, keyPrefixLength)
		}
		if _, err := bcrypt.Cost([]byte(key.Hash)); err != nil {
			return nil, errors.Wrapf(err, "api key %q: invalid bcrypt hash", key.Name)
		}

		p := &principal{key: key, scenarios: sets.New(key.Scenarios...)}
		for _, pattern := range key.Clusters {
			g, err := glob.Compile(pattern)
			if err != nil {
				return nil, errors.Wrapf(err, "api key %q: invalid cluster pattern %q", key.Name, pattern)
			}
			p.clusters = append(p.clusters, g)
		}
		for _, scenario := range key.Scenarios {
			if scenario != "*" && !isKnownScenario(scenario) {
				return nil, errors.Errorf("api key %q: unknown scenario %q", key.Name, scenario)
			}
		}

		s.byPrefix[key.Prefix] = append(s.byPrefix[key.Prefix], p)
		s.byName[key.Name] = p
	}

	return s, nil
}

// Names returns the principal names of the stored keys, sorted.
func (s *KeyStore) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authenticate returns the name of the key matching token.
func (s *KeyStore) Authenticate(token string) (string, error) {
	token = strings.TrimSpace(token)
	if len(token) < keyPrefixLength {
		return "", restore.NewAccessError("api", "invalid api key format", nil)
	}

	candidates := s.byPrefix[token[:keyPrefixLength]]

	for _, p := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(p.key.Hash), []byte(token)) != nil {
			continue
		}
		if p.key.ExpiresAt != nil && s.now().After(*p.key.ExpiresAt) {
			return "", restore.NewAccessError("api", "api key "+p.key.Name+" expired", nil)
		}
		return p.key.Name, nil
	}

	return "", restore.NewAccessError("api", "invalid api key", nil)
}

// Authorize checks the request's target cluster and scenario against the
// principal's key.
func (s *KeyStore) Authorize(name string, req *restorev1.RestoreRequest) error {
	p, ok := s.byName[name]

	if !ok {
		return restore.NewAccessError(req.TargetCluster, fmt.Sprintf("unknown principal %q", name), nil)
	}

	clusterAllowed := false
	for _, g := range p.clusters {
		if g.Match(req.TargetCluster) {
			clusterAllowed = true
			break
		}
	}
	if !clusterAllowed {
		return restore.NewAccessError(req.TargetCluster, fmt.Sprintf("principal %q may not restore to this cluster", name), nil)
	}

	if !p.scenarios.Has("*") && !p.scenarios.Has(string(req.DRScenario)) {
		return restore.NewAccessError(req.TargetCluster, fmt.Sprintf("principal %q may not run scenario %s", name, req.DRScenario), nil)
	}

	return nil
}

// GenerateKey creates a random raw key and its stored form.
func GenerateKey(name string, clusters, scenarios []string) (APIKey, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return APIKey{}, "", errors.Wrap(err, "error generating api key")
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return APIKey{}, "", errors.Wrap(err, "error hashing api key")
	}

	return APIKey{
		Name:      name,
		Prefix:    raw[:keyPrefixLength],
		Hash:      string(hash),
		Clusters:  clusters,
		Scenarios: scenarios,
	}, raw, nil
}

func isKnownScenario(s string) bool {
	for _, scenario := range restorev1.DRScenarios() {
		if string(scenario) == s {
			return true
		}
	}
	return false
}

type allowAll struct{}

// AllowAll returns an Authorizer that permits every request. It is used
// when the engine runs in-process from the command line.
func AllowAll() Authorizer {
	return allowAll{}
}

func (allowAll) Authorize(string, *restorev1.RestoreRequest) error {
	return nil
}
