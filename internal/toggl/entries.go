package toggl

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"timereport/internal/model"
	"timereport/internal/source"
)

type apiEntry struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
	Billable    bool       `json:"billable"`
	Tags        []string   `json:"tags"`
	TagIDs      []int64    `json:"tag_ids"`
}

type me struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// ListEntries fetches the time entries of the credential's owner and applies
// the workspace, project, tag and client filters. With a workspace filter the
// entries are enriched with project and client names.
func (c *Client) ListEntries(ctx context.Context, cred source.Credential, f source.Filter) ([]model.TimeEntry, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	if f.Start != nil {
		args.Set("start_date", f.Start.UTC().Format(time.DateOnly))
	}
	if f.End != nil {
		// end_date is exclusive upstream.
		args.Set("end_date", f.End.UTC().AddDate(0, 0, 1).Format(time.DateOnly))
	}

	var raw []apiEntry
	if err := c.get(ctx, cred.APIToken, "/me/time_entries", args, &raw); err != nil {
		return nil, err
	}

	if f.WorkspaceID != nil {
		raw = slices.DeleteFunc(raw, func(e apiEntry) bool { return e.WorkspaceID != *f.WorkspaceID })
	}
	if f.ProjectID != nil {
		raw = slices.DeleteFunc(raw, func(e apiEntry) bool { return e.ProjectID == nil || *e.ProjectID != *f.ProjectID })
	}
	if f.TagID != nil {
		tagName := ""
		if f.WorkspaceID != nil {
			tags, err := c.Tags(ctx, cred.APIToken, *f.WorkspaceID)
			if err != nil {
				return nil, err
			}
			for _, t := range tags {
				if t.ID == *f.TagID {
					tagName = t.Name
				}
			}
		}
		raw = slices.DeleteFunc(raw, func(e apiEntry) bool { return !hasTag(e, *f.TagID, tagName) })
	}

	entries := make([]model.TimeEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, toEntry(e, cred))
	}

	if f.WorkspaceID == nil {
		return entries, nil
	}

	projects, err := c.Projects(ctx, cred.APIToken, *f.WorkspaceID)
	if err != nil {
		return nil, err
	}
	clients, err := c.Clients(ctx, cred.APIToken, *f.WorkspaceID)
	if err != nil {
		return nil, err
	}
	projectByID := make(map[int64]Project, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = p
	}
	clientName := make(map[int64]string, len(clients))
	for _, cl := range clients {
		clientName[cl.ID] = cl.Name
	}

	for i := range entries {
		if entries[i].ProjectID == nil {
			continue
		}
		p, ok := projectByID[*entries[i].ProjectID]
		if !ok {
			continue
		}
		entries[i].Project = p.Name
		if p.ClientID != nil {
			entries[i].ClientID = p.ClientID
			entries[i].Client = clientName[*p.ClientID]
		}
	}

	if f.ClientID != nil {
		entries = slices.DeleteFunc(entries, func(e model.TimeEntry) bool {
			return e.ClientID == nil || *e.ClientID != *f.ClientID
		})
	}
	return entries, nil
}

func hasTag(e apiEntry, id int64, name string) bool {
	if slices.Contains(e.TagIDs, id) {
		return true
	}
	idStr := strconv.FormatInt(id, 10)
	for _, t := range e.Tags {
		if t == idStr || (name != "" && t == name) {
			return true
		}
	}
	return false
}

func toEntry(e apiEntry, cred source.Credential) model.TimeEntry {
	ws := e.WorkspaceID
	return model.TimeEntry{
		ID:          e.ID,
		Description: e.Description,
		Start:       e.Start,
		Stop:        e.Stop,
		Duration:    e.Duration,
		Billable:    e.Billable,
		Tags:        e.Tags,
		WorkspaceID: &ws,
		ProjectID:   e.ProjectID,
		AccountID:   cred.AccountID,
		AccountName: cred.AccountName,
	}
}

// ResolveIdentity returns the owner's full name, falling back to the email
// and then to the account name.
func (c *Client) ResolveIdentity(ctx context.Context, cred source.Credential) (source.Identity, error) {
	var m me
	if err := c.get(ctx, cred.APIToken, "/me", nil, &m); err != nil {
		return source.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	name := m.Fullname
	if name == "" {
		name = m.Email
	}
	if name == "" {
		name = cred.AccountName
	}
	return source.Identity{DisplayName: name}, nil
}
