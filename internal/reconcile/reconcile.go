// Package reconcile drives one tracking sweep: classify each tracked
// number, fetch its snapshot, detect changes against the stored state,
// and fold updates back into the store with at most one save per run.
package reconcile

import (
	"context"
	"sort"
	"time"

	"trackbot/internal/store"
	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

// Fetcher is the carrier boundary: one no-fail snapshot per number.
type Fetcher interface {
	Fetch(ctx context.Context, number string, withHistory bool) track.Snapshot
}

// Scope selects which users a run processes.
type Scope struct {
	All    bool
	UserID string
}

func AllUsers() Scope         { return Scope{All: true} }
func OneUser(id string) Scope { return Scope{UserID: id} }

// Line is one package's contribution to a user's report.
type Line struct {
	Number   string
	Carrier  track.Carrier
	Header   track.Header
	Summary  string
	DeepLink string
	LinkMode bool
	Changed  bool
}

// Batch is one user's notification payload for a run. Empty marks the
// explicit "list is empty" response, produced only for one-user scope.
type Batch struct {
	UserID string
	Forced bool
	Empty  bool
	Lines  []Line
}

// Result communicates the outcome of one run. Dirty is the external
// "state changed" signal: true iff at least one package's stored details
// were updated (and therefore exactly one save happened).
type Result struct {
	Dirty    bool
	Batches  []Batch
	Users    int
	Packages int
	Took     time.Duration
}

type Orchestrator struct {
	repo  *store.Repository
	fetch Fetcher
	log   logx.Logger
}

func New(repo *store.Repository, fetch Fetcher, log logx.Logger) *Orchestrator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{repo: repo, fetch: fetch, log: log}
}

// Run performs one sweep over the scoped users, strictly sequential.
// A package contributes a report line iff its summary changed or force is
// set. The store is saved at most once, and only when the run is dirty.
func (o *Orchestrator) Run(ctx context.Context, scope Scope, force bool) Result {
	start := time.Now()
	s := o.repo.Load()

	var userIDs []string
	if scope.All {
		userIDs = make([]string, 0, len(s.Users))
		for id := range s.Users {
			userIDs = append(userIDs, id)
		}
		sort.Strings(userIDs)
	} else {
		userIDs = []string{scope.UserID}
	}

	res := Result{Users: len(userIDs)}
	for _, uid := range userIDs {
		list := s.Users[uid]
		if len(list) == 0 {
			// An empty list is only worth a reply when this user asked.
			if !scope.All {
				res.Batches = append(res.Batches, Batch{UserID: uid, Forced: force, Empty: true})
			}
			continue
		}

		batch := Batch{UserID: uid, Forced: force}
		for i := range list {
			p := &list[i]
			res.Packages++

			snap := o.fetch.Fetch(ctx, p.Number, false)
			changed := track.Changed(*p, snap)
			if changed {
				track.ApplySnapshot(p, snap)
				res.Dirty = true
			}
			if changed || force {
				batch.Lines = append(batch.Lines, Line{
					Number:   p.Number,
					Carrier:  snap.Carrier,
					Header:   snap.Header,
					Summary:  snap.Summary,
					DeepLink: snap.DeepLink,
					LinkMode: snap.Header == track.HeaderLink,
					Changed:  changed,
				})
			}
		}
		if len(batch.Lines) > 0 {
			res.Batches = append(res.Batches, batch)
		}
	}

	if res.Dirty {
		o.repo.Save(s)
	}
	res.Took = time.Since(start)

	o.log.Info("reconcile run finished",
		logx.Bool("force", force),
		logx.Int("users", res.Users),
		logx.Int("packages", res.Packages),
		logx.Int("notified", len(res.Batches)),
		logx.Bool("dirty", res.Dirty),
		logx.Duration("took", res.Took))
	return res
}

// History fetches the full event history for one number on demand
// (triggered by a "view history" control, not by the periodic sweep).
func (o *Orchestrator) History(ctx context.Context, number string) track.Snapshot {
	return o.fetch.Fetch(ctx, number, true)
}

// Add registers a number for the user and performs its first check, so the
// caller can report the initial status right away. The store is saved on
// success. ok is false when the number was already tracked.
func (o *Orchestrator) Add(ctx context.Context, userID, number string) (line Line, ok bool) {
	s := o.repo.Load()
	if !s.AddPackage(userID, number) {
		return Line{}, false
	}

	list := s.Users[userID]
	p := &list[len(list)-1]
	snap := o.fetch.Fetch(ctx, p.Number, false)
	if track.Changed(*p, snap) {
		track.ApplySnapshot(p, snap)
	}
	o.repo.Save(s)

	o.log.Info("package added", logx.String("user", userID), logx.String("number", p.Number))
	return Line{
		Number:   p.Number,
		Carrier:  snap.Carrier,
		Header:   snap.Header,
		Summary:  snap.Summary,
		DeepLink: snap.DeepLink,
		LinkMode: snap.Header == track.HeaderLink,
		Changed:  true,
	}, true
}

// Delete removes a number from the user's list, reporting whether it was
// present. The store is saved only when something was removed.
func (o *Orchestrator) Delete(userID, number string) bool {
	s := o.repo.Load()
	if !s.DeletePackage(userID, number) {
		return false
	}
	o.repo.Save(s)
	o.log.Info("package deleted", logx.String("user", userID), logx.String("number", number))
	return true
}

// Tracked lists the user's packages in insertion order.
func (o *Orchestrator) Tracked(userID string) []track.Package {
	return o.repo.Load().Packages(userID)
}
