package git

import (
	"time"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Fallback identity used when no user is configured anywhere
const (
	DefaultName  = "stackgraph"
	DefaultEmail = "stackgraph@localhost"
)

// Signature returns the configured user as a signature stamped with when.
// Repository config wins over global config; committer settings win over
// author settings.
func (r *Repository) Signature(when time.Time) object.Signature {
	r.mu.Lock()
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	r.mu.Unlock()

	sig := object.Signature{Name: DefaultName, Email: DefaultEmail, When: when}
	if err != nil {
		return sig
	}
	for _, id := range []struct{ name, email string }{
		{cfg.User.Name, cfg.User.Email},
		{cfg.Author.Name, cfg.Author.Email},
		{cfg.Committer.Name, cfg.Committer.Email},
	} {
		if id.name != "" {
			sig.Name = id.name
		}
		if id.email != "" {
			sig.Email = id.email
		}
	}
	return sig
}
