package models

// ModerationAction names an event in a project's lifecycle.
type ModerationAction string

const (
	ActionSubmit         ModerationAction = "submit"
	ActionApprove        ModerationAction = "approve"
	ActionReject         ModerationAction = "reject"
	ActionRequestChanges ModerationAction = "request-changes"
	ActionEdit           ModerationAction = "edit"
	// ActionExpire is the system transition applied by the deadline sweep.
	// It is recorded in history as ActionReject.
	ActionExpire ModerationAction = "expire"
)

// transitions is keyed by (from, action). The empty status is a project that has not been stored yet.
var transitions = map[ProjectStatus]map[ModerationAction]ProjectStatus{
	"": {
		ActionSubmit: ProjectStatusPending,
	},
	ProjectStatusPending: {
		ActionApprove:        ProjectStatusLive,
		ActionReject:         ProjectStatusRejected,
		ActionRequestChanges: ProjectStatusNeedsChanges,
		ActionEdit:           ProjectStatusPending,
	},
	ProjectStatusNeedsChanges: {
		ActionApprove:        ProjectStatusLive,
		ActionReject:         ProjectStatusRejected,
		ActionRequestChanges: ProjectStatusNeedsChanges,
		ActionEdit:           ProjectStatusPending,
		ActionExpire:         ProjectStatusRejected,
	},
	ProjectStatusLive: {
		ActionEdit: ProjectStatusPending,
	},
	ProjectStatusRejected: {
		ActionEdit: ProjectStatusPending,
	},
}

// NextStatus returns the status reached by applying action in status from.
func NextStatus(from ProjectStatus, action ModerationAction) (ProjectStatus, bool) {
	row, ok := transitions[from]
	if !ok {
		return "", false
	}
	to, ok := row[action]
	return to, ok
}

// AllowedActions lists the actions that have a row for status from.
func AllowedActions(from ProjectStatus) []ModerationAction {
	row := transitions[from]
	out := make([]ModerationAction, 0, len(row))
	for _, action := range []ModerationAction{
		ActionSubmit, ActionApprove, ActionReject, ActionRequestChanges, ActionEdit, ActionExpire,
	} {
		if _, ok := row[action]; ok {
			out = append(out, action)
		}
	}
	return out
}
