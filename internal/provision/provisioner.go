// Package provision brings a member's sandbox project and membership
// grant to the target state, idempotently: repeated runs for the same
// member converge on the same project because naming is deterministic
// and the platform's duplicate rejections are read as already-satisfied
// state.
package provision

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mattjoyce/vestibule/internal/platform"
)

// API is the slice of the platform client the provisioner needs.
type API interface {
	CreateProject(ctx context.Context, workspaceID, name string) (*platform.Project, error)
	Projects(ctx context.Context, workspaceID string) ([]platform.Project, error)
	AddProjectMember(ctx context.Context, projectID, memberID, role string) error
}

// Result is the observable outcome of one provisioning run.
type Result struct {
	ActorID       string `json:"actorId"`
	ActorEmail    string `json:"actorEmail"`
	ProjectID     string `json:"projectId"`
	ProjectName   string `json:"projectName"`
	WorkspaceRole string `json:"workspaceRole"`
	ProjectRole   string `json:"projectRole"`
}

// Provisioner executes the create-or-reuse project / grant-or-skip
// membership workflow.
type Provisioner struct {
	api    API
	logger *slog.Logger
}

// New creates a Provisioner.
func New(api API, logger *slog.Logger) *Provisioner {
	return &Provisioner{api: api, logger: logger}
}

// Provision ensures the actor's sandbox project exists and carries the
// actor with the elevated role. Only the two duplicate-rejection cases
// are recovered locally; every other platform failure propagates with
// its original message.
func (p *Provisioner) Provision(ctx context.Context, actorID, actorEmail, workspaceID string) (*Result, error) {
	logger := p.logger.With(
		"run_id", uuid.NewString(),
		"actor_id", actorID,
		"workspace_id", workspaceID,
	)

	name := DeriveProjectName(actorEmail)
	logger.Info("provisioning sandbox project", "project_name", name)

	proj, err := p.api.CreateProject(ctx, workspaceID, name)
	if err != nil {
		if !platform.IsConflict(err) {
			return nil, err
		}
		logger.Info("project already exists, resolving by name", "project_name", name)
		proj, err = p.findProject(ctx, workspaceID, name)
		if err != nil {
			return nil, err
		}
	}

	if err := p.api.AddProjectMember(ctx, proj.ID, actorID, platform.ProjectRoleAdmin); err != nil {
		if !platform.IsConflict(err) {
			return nil, err
		}
		// Re-delivered event or concurrent duplicate: the grant is
		// already in place, which is the state we wanted.
		logger.Info("membership already exists, treating as satisfied", "project_id", proj.ID)
	}

	logger.Info("provisioning complete",
		"project_id", proj.ID,
		"project_name", proj.Name,
		"project_role", platform.ProjectRoleAdmin,
	)

	return &Result{
		ActorID:       actorID,
		ActorEmail:    actorEmail,
		ProjectID:     proj.ID,
		ProjectName:   proj.Name,
		WorkspaceRole: platform.WorkspaceRoleMember,
		ProjectRole:   platform.ProjectRoleAdmin,
	}, nil
}

// findProject resolves an existing project by exact name after a
// create conflict. A conflict without a matching project is terminal.
func (p *Provisioner) findProject(ctx context.Context, workspaceID, name string) (*platform.Project, error) {
	projects, err := p.api.Projects(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}
	return nil, platform.TerminalError("expected existing project %q not found in workspace", name)
}
