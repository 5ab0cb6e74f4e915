package platform

import "context"

// EventMemberJoined is the event type that triggers provisioning.
const EventMemberJoined = "WorkspaceMember.joined"

// Role values used by provisioning: new members carry the restricted
// workspace role and get the elevated role on their own project.
const (
	WorkspaceRoleMember = "MEMBER"
	ProjectRoleAdmin    = "ADMIN"
)

// ChannelTypeWebhook identifies webhook delivery channels on
// notification subscriptions.
const ChannelTypeWebhook = "WEBHOOK"

// Project is a sandboxed resource container within a workspace.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Member is a workspace member as returned by the members query.
type Member struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Channel is a delivery channel on a notification subscription.
type Channel struct {
	Type        string `json:"type"`
	CallbackURL string `json:"callbackUrl"`
}

// Subscription is a notification subscription registration.
type Subscription struct {
	ID         string    `json:"id"`
	EventTypes []string  `json:"eventTypes"`
	Channels   []Channel `json:"channels"`
}

const createProjectMutation = `
mutation CreateProject($workspaceId: ID!, $name: String!) {
  projectCreate(input: {workspaceId: $workspaceId, name: $name}) {
    project { id name }
  }
}`

// CreateProject creates a project in the workspace. A name collision
// surfaces as a conflict-classified *CallError.
func (c *Client) CreateProject(ctx context.Context, workspaceID, name string) (*Project, error) {
	var out struct {
		ProjectCreate struct {
			Project Project `json:"project"`
		} `json:"projectCreate"`
	}
	err := c.Execute(ctx, "CreateProject", createProjectMutation, map[string]any{
		"workspaceId": workspaceID,
		"name":        name,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.ProjectCreate.Project, nil
}

const projectsQuery = `
query WorkspaceProjects($workspaceId: ID!) {
  workspace(id: $workspaceId) {
    projects { id name }
  }
}`

// Projects lists the workspace's projects. Used to resolve an existing
// project after a create conflict.
func (c *Client) Projects(ctx context.Context, workspaceID string) ([]Project, error) {
	var out struct {
		Workspace struct {
			Projects []Project `json:"projects"`
		} `json:"workspace"`
	}
	err := c.Execute(ctx, "WorkspaceProjects", projectsQuery, map[string]any{
		"workspaceId": workspaceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Workspace.Projects, nil
}

const addProjectMemberMutation = `
mutation AddProjectMember($projectId: ID!, $memberId: ID!, $role: ProjectRole!) {
  projectMemberAdd(input: {projectId: $projectId, memberId: $memberId, role: $role}) {
    member { id role }
  }
}`

// AddProjectMember grants a member a role on a project. An existing
// membership surfaces as a conflict-classified *CallError.
func (c *Client) AddProjectMember(ctx context.Context, projectID, memberID, role string) error {
	return c.Execute(ctx, "AddProjectMember", addProjectMemberMutation, map[string]any{
		"projectId": projectID,
		"memberId":  memberID,
		"role":      role,
	}, nil)
}

const workspaceMembersQuery = `
query WorkspaceMembers($workspaceId: ID!) {
  workspace(id: $workspaceId) {
    members { id email role }
  }
}`

// WorkspaceMembers lists the workspace's members. Consumed by the
// doctor command as a live credential check.
func (c *Client) WorkspaceMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	var out struct {
		Workspace struct {
			Members []Member `json:"members"`
		} `json:"workspace"`
	}
	err := c.Execute(ctx, "WorkspaceMembers", workspaceMembersQuery, map[string]any{
		"workspaceId": workspaceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Workspace.Members, nil
}

const subscriptionsQuery = `
query NotificationSubscriptions($workspaceId: ID!) {
  workspace(id: $workspaceId) {
    subscriptions { id eventTypes channels { type callbackUrl } }
  }
}`

// Subscriptions lists the workspace's notification subscriptions.
func (c *Client) Subscriptions(ctx context.Context, workspaceID string) ([]Subscription, error) {
	var out struct {
		Workspace struct {
			Subscriptions []Subscription `json:"subscriptions"`
		} `json:"workspace"`
	}
	err := c.Execute(ctx, "NotificationSubscriptions", subscriptionsQuery, map[string]any{
		"workspaceId": workspaceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Workspace.Subscriptions, nil
}

const createSubscriptionMutation = `
mutation CreateSubscription($workspaceId: ID!, $eventTypes: [String!]!, $url: String!, $secret: String) {
  subscriptionCreate(input: {
    workspaceId: $workspaceId,
    eventTypes: $eventTypes,
    channels: [{type: WEBHOOK, callbackUrl: $url}],
    secret: $secret
  }) {
    subscription { id eventTypes channels { type callbackUrl } }
  }
}`

// CreateSubscription registers a webhook subscription for the given
// event types. An empty secret creates an unsigned subscription.
func (c *Client) CreateSubscription(ctx context.Context, workspaceID string, eventTypes []string, callbackURL, secret string) (*Subscription, error) {
	vars := map[string]any{
		"workspaceId": workspaceID,
		"eventTypes":  eventTypes,
		"url":         callbackURL,
	}
	if secret != "" {
		vars["secret"] = secret
	}
	var out struct {
		SubscriptionCreate struct {
			Subscription Subscription `json:"subscription"`
		} `json:"subscriptionCreate"`
	}
	err := c.Execute(ctx, "CreateSubscription", createSubscriptionMutation, vars, &out)
	if err != nil {
		return nil, err
	}
	return &out.SubscriptionCreate.Subscription, nil
}

const deleteSubscriptionMutation = `
mutation DeleteSubscription($id: ID!) {
  subscriptionDelete(id: $id) { success }
}`

// DeleteSubscription removes a notification subscription by id.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.Execute(ctx, "DeleteSubscription", deleteSubscriptionMutation, map[string]any{
		"id": id,
	}, nil)
}
