package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `orgchat lets you chat with Salesforce orgs through an agent backend.

Core concepts:
- Session: one authenticated org. Exactly zero or one session is active.
- Transcript: the active session's messages as the backend last reported them.
- Snapshot: the data retrieved by the latest reply, often a list of records.
- Data log: every retrieval the backend made in the session.

Workflow:
1) list_sessions. If none fits, connect with instance_url plus credentials.
2) switch_session to change org; it reloads the transcript.
3) send_message returns the new transcript and snapshot. One send at a time per session.
4) toggle_data_log shows or hides the retrieval log.

Errors are JSON objects with code, message and recovery_hint.
Docs: orgchat://docs/usage
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "orgchat://docs/usage",
		Name:        "docs_usage",
		Title:       "orgchat usage",
		Description: "Tools, error codes and dev backend commands.",
		Content: `# orgchat usage

## Tools

| Tool | Purpose |
|------|---------|
| connect | Authenticate and activate a new session |
| list_sessions | Sessions in creation order plus the active id |
| switch_session | Activate a session and reload its transcript |
| remove_session | Forget one session |
| clear_sessions | Forget all sessions |
| get_transcript | Active transcript and snapshot |
| send_message | Send text in the active session |
| toggle_data_log | Show or hide the retrieval log |

## Credentials

- grant_type "password" (default) needs username, password, client_id, client_secret.
- grant_type "token" needs access_token.
- instance_url is always required.

## Error codes

- VALIDATION: bad or missing arguments. Nothing was sent.
- NO_ACTIVE_SESSION: connect or switch_session first.
- SESSION_NOT_FOUND: unknown session_id.
- SEND_IN_FLIGHT: wait for the previous reply in this session.
- BACKEND_ERROR: the backend rejected the request. message carries its detail.
- NETWORK_ERROR: the backend was unreachable.
- PERSISTENCE_ERROR: local storage failed. In-memory state is kept.

A failed send leaves the transcript as it was before the send.

## Dev backend

orgchat dev-backend serves a fake agent. Messages:
- "/records N" returns N sample Account records.
- "/fail TEXT" fails the turn with TEXT as the error detail.
- anything else is echoed.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
