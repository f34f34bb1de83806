package speechgen

import (
	"os"
	"sort"
	"strings"
)

// Environment key prefixes that must all be present for a suffix group to
// form a usable model configuration.
const (
	keyEndpoint   = "ENDPOINT"
	keyAPIKey     = "API_KEY"
	keyAPIVersion = "API_VERSION"
	keyDeployment = "DEPLOYMENT_NAME"
	keyAPIType    = "API_TYPE"

	// keyModel is the optional display-name override prefix.
	keyModel = "MODEL"
)

var requiredKeyPrefixes = []string{keyEndpoint, keyAPIKey, keyAPIVersion, keyDeployment, keyAPIType}

// CredentialBundle holds the connection parameters for one model. Every
// field is non-empty by construction: a suffix group missing any value never
// enters the registry.
type CredentialBundle struct {
	Endpoint   string // Base HTTPS endpoint of the resource
	APIKey     string // API key credential
	APIVersion string // API version query parameter
	Deployment string // Deployment name of the realtime model
	APIType    string // Deployment flavor (e.g., "azure")
}

// ModelDescriptor is one discovered model configuration. Descriptors are
// constructed once during discovery and never mutated.
type ModelDescriptor struct {
	ID          string           // Lowercased suffix, the logical model id
	DisplayName string           // MODEL_<X> override or the raw deployment name
	Suffix      string           // The raw environment key suffix
	Credentials CredentialBundle // Connection parameters, all fields non-empty
}

// ModelInfo is the (id, display name) pair used to populate selection UIs.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// RegistryOptions configures model discovery.
type RegistryOptions struct {
	// Logger, if set, is called once per suffix group that was skipped
	// because required keys were missing. Skipping is silent by policy (an
	// incomplete group is not an error), but operators usually want to know
	// why a model they half-configured is not showing up.
	Logger func(event string, fields map[string]any)
}

// Registry is the immutable set of discovered model configurations.
// It is safe for concurrent use.
type Registry struct {
	models map[string]ModelDescriptor
}

// DiscoverModels scans a raw key-value snapshot in os.Environ form
// ("KEY=value" entries) and builds a registry from every complete suffix
// group. Groups are anchored on DEPLOYMENT_NAME_<X> keys; a group is included
// only when all five of ENDPOINT_<X>, API_KEY_<X>, API_VERSION_<X>,
// DEPLOYMENT_NAME_<X>, and API_TYPE_<X> are present with non-empty values.
// Incomplete groups are dropped without error; set RegistryOptions.Logger to
// observe them.
//
// Taking the snapshot as an argument keeps discovery a pure function; use
// NewRegistryFromEnv to scan the process environment.
func DiscoverModels(environ []string, opts RegistryOptions) *Registry {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}

	models := make(map[string]ModelDescriptor)
	for key, deployment := range vars {
		suffix, ok := strings.CutPrefix(key, keyDeployment+"_")
		if !ok || suffix == "" {
			continue
		}

		var missing []string
		for _, prefix := range requiredKeyPrefixes {
			if vars[prefix+"_"+suffix] == "" {
				missing = append(missing, prefix+"_"+suffix)
			}
		}
		if len(missing) > 0 {
			if opts.Logger != nil {
				sort.Strings(missing)
				opts.Logger("model_skipped", map[string]any{
					"suffix":       suffix,
					"missing_keys": strings.Join(missing, ","),
				})
			}
			continue
		}

		displayName := deployment
		if override := vars[keyModel+"_"+suffix]; override != "" {
			displayName = override
		}

		id := strings.ToLower(suffix)
		models[id] = ModelDescriptor{
			ID:          id,
			DisplayName: displayName,
			Suffix:      suffix,
			Credentials: CredentialBundle{
				Endpoint:   vars[keyEndpoint+"_"+suffix],
				APIKey:     vars[keyAPIKey+"_"+suffix],
				APIVersion: vars[keyAPIVersion+"_"+suffix],
				Deployment: deployment,
				APIType:    vars[keyAPIType+"_"+suffix],
			},
		}
	}

	return &Registry{models: models}
}

// NewRegistryFromEnv discovers models from the current process environment.
// Discovery reads the environment once; callers keep the returned registry
// for the process lifetime (there is no live reload).
func NewRegistryFromEnv(opts RegistryOptions) *Registry {
	return DiscoverModels(os.Environ(), opts)
}

// List returns the (id, display name) pairs of all discovered models.
// Order is unspecified; callers that need stable ordering must sort.
func (r *Registry) List() []ModelInfo {
	out := make([]ModelInfo, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, ModelInfo{ID: m.ID, DisplayName: m.DisplayName})
	}
	return out
}

// Len returns the number of discovered models.
func (r *Registry) Len() int { return len(r.models) }

// Resolve returns the descriptor for a model id. It fails with an error
// matching ErrModelNotFound when the id is absent from the discovered set.
func (r *Registry) Resolve(id string) (ModelDescriptor, error) {
	m, ok := r.models[id]
	if !ok {
		return ModelDescriptor{}, &NotFoundError{ModelID: id}
	}
	return m, nil
}

// CredentialKeys returns the environment key names backing a model's
// credential bundle, keyed by logical field name. This lets a caller perform
// its own lookups against the external namespace instead of reading the
// cached values.
func (r *Registry) CredentialKeys(id string) (map[string]string, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, &NotFoundError{ModelID: id}
	}
	return map[string]string{
		"endpoint":        keyEndpoint + "_" + m.Suffix,
		"api_key":         keyAPIKey + "_" + m.Suffix,
		"api_version":     keyAPIVersion + "_" + m.Suffix,
		"deployment_name": keyDeployment + "_" + m.Suffix,
		"api_type":        keyAPIType + "_" + m.Suffix,
	}, nil
}
