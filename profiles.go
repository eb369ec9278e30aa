package quorum

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Profiles is an optional TOML overlay for sampling parameters.
// Fields are pointers so a profile can override a single knob without
// touching the others.
type Profiles struct {
	Round1 ParamsPatch `toml:"round1"`
	Round2 ParamsPatch `toml:"round2"`
	Chat   ParamsPatch `toml:"chat"`
}

// ParamsPatch is a partial Params override.
type ParamsPatch struct {
	N         *int `toml:"n"`
	BestOf    *int `toml:"best_of"`
	MaxTokens *int `toml:"max_tokens"`
}

func (p ParamsPatch) apply(base *Params) {
	if p.N != nil {
		base.N = *p.N
	}
	if p.BestOf != nil {
		base.BestOf = *p.BestOf
	}
	if p.MaxTokens != nil {
		base.MaxTokens = *p.MaxTokens
	}
}

// LoadProfiles reads the profile file and applies it to cfg.
// A missing file is not an error.
func LoadProfiles(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var prof Profiles
	if err := toml.Unmarshal(data, &prof); err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}

	prof.Round1.apply(&cfg.Sampling.Round1)
	prof.Round2.apply(&cfg.Sampling.Round2)
	prof.Chat.apply(&cfg.Sampling.Chat)
	return nil
}
