package feature

import (
    "context"
    "fmt"
    "hash/fnv"
    "sync"
    "time"

    "github.com/patrickmn/go-cache"
)

type FeatureBackend interface {
    GetFlag(ctx context.Context, name string) (FeatureFlag, error)
}

type FeatureNotifier interface {
    Notify(flag FeatureFlag)
}

type UserContext struct {
    ID          string
    Email       string
    Groups      []string
    Environment string
}

type FeatureFlagManager struct {
    flags    map[string]FeatureFlag
    mu       sync.RWMutex
    cache    *cache.Cache
    backend  FeatureBackend
    notifier FeatureNotifier
}

type FeatureFlag struct {
    Name        string                 `json:"name"`
    Description string                 `json:"description"`
    Enabled     bool                   `json:"enabled"`
    Type        string                 `json:"type"` // boolean, percentage, user, environment
    Percentage  int                    `json:"percentage,omitempty"`
    Users       []string               `json:"users,omitempty"`
    Groups      []string               `json:"groups,omitempty"`
    StartTime   *time.Time             `json:"start_time,omitempty"`
    EndTime     *time.Time             `json:"end_time,omitempty"`
    Metadata    map[string]interface{} `json:"metadata"`
    CreatedAt   time.Time              `json:"created_at"`
    UpdatedAt   time.Time              `json:"updated_at"`
}

func NewFeatureFlagManager(backend FeatureBackend) *FeatureFlagManager {
    return &FeatureFlagManager{
        flags:   make(map[string]FeatureFlag),
        cache:   cache.New(5*time.Minute, 10*time.Minute),
        backend: backend,
    }
}

func (ffm *FeatureFlagManager) IsEnabled(ctx context.Context, flagName string, userContext UserContext) (bool, error) {
    // Check cache first
    if enabled, found := ffm.cache.Get(flagName); found {
        return enabled.(bool), nil
    }

    // Get flag from backend
    flag, err := ffm.backend.GetFlag(ctx, flagName)
    if err != nil {
        return false, fmt.Errorf("failed to get feature flag: %v", err)
    }

    // Evaluate flag
    enabled := ffm.evaluateFlag(flag, userContext)

    // Cache result
    ffm.cache.Set(flagName, enabled, cache.DefaultExpiration)

    return enabled, nil
}

func (ffm *FeatureFlagManager) evaluateFlag(flag FeatureFlag, userContext UserContext) bool {
    // Check if flag is within time window
    if flag.StartTime != nil && time.Now().Before(*flag.StartTime) {
        return false
    }
    if flag.EndTime != nil && time.Now().After(*flag.EndTime) {
        return false
    }

    // Check flag type
    switch flag.Type {
    case "boolean":
        return flag.Enabled

    case "percentage":
        if !flag.Enabled {
            return false
        }
        // Use user ID for consistent rollout
        hash := hashString(userContext.ID) % 100
        return int(hash) < flag.Percentage

    case "user":
        if !flag.Enabled {
            return false
        }
        // Check specific users
        for _, user := range flag.Users {
            if user == userContext.Email || user == userContext.ID {
                return true
            }
        }
        // Check groups
        for _, group := range flag.Groups {
            for _, userGroup := range userContext.Groups {
                if group == userGroup {
                    return true
                }
            }
        }
        return false

    case "environment":
        env, ok := flag.Metadata["environment"].(string)
        return ok && flag.Enabled && userContext.Environment == env

    default:
        return false
    }
}

func hashString(s string) uint32 {
    h := fnv.New32a()
    h.Write([]byte(s))
    return h.Sum32()
}

// DefaultFeatureFlags seeds the environment-variable-named switches
// recognized by spec §6: USE_CONSOLIDATED_MCP_TOOLS picks the NL-query
// tool catalog version (C12); the sales-sync flags gate the background
// cross-store sync scheduler, which is out of scope for the core but
// still needs a flag to no-op cleanly when disabled.
var DefaultFeatureFlags = map[string]FeatureFlag{
    "USE_CONSOLIDATED_MCP_TOOLS": {
        Name:        "USE_CONSOLIDATED_MCP_TOOLS",
        Description: "Route NL-query to the v2 consolidated tool catalog instead of v1 legacy tools",
        Enabled:     false,
        Type:        "boolean",
    },
    "ENABLE_SALES_SYNC": {
        Name:        "ENABLE_SALES_SYNC",
        Description: "Enable the cross-store sales synchronization scheduler",
        Enabled:     false,
        Type:        "boolean",
    },
    "ENABLE_PROMETHEUS_METRICS": {
        Name:        "ENABLE_PROMETHEUS_METRICS",
        Description: "Expose /metrics as JSON request counters",
        Enabled:     true,
        Type:        "boolean",
    },
}

// StaticBackend serves flags from an in-memory map, letting deployments
// override DefaultFeatureFlags via environment-derived values without a
// remote flag service.
type StaticBackend struct {
    flags map[string]FeatureFlag
}

func NewStaticBackend(flags map[string]FeatureFlag) *StaticBackend {
    return &StaticBackend{flags: flags}
}

func (b *StaticBackend) GetFlag(ctx context.Context, name string) (FeatureFlag, error) {
    if f, ok := b.flags[name]; ok {
        return f, nil
    }
    return FeatureFlag{}, fmt.Errorf("unknown feature flag %q", name)
}
