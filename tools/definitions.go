package tools

// Bounds shared by the paginated tools.
const (
	DefaultLimit   = 10
	MaxSearchLimit = 50
	MaxSplitLimit  = 100
)

// AllTools contains all tool specifications for the Atlassian MCP server.
// Tool descriptions follow a structured format for LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// CONFLUENCE
	// ==========================================================================
	{
		Name:     "confluence_search",
		Method:   "ConfluenceSearch",
		Title:    "Search Confluence",
		Category: "search",
		Backend:  BackendConfluence,
		Description: `Search Confluence pages with CQL.

USE WHEN: User asks "find pages about X", "where is X documented", or doesn't know which page holds the answer.

NOT FOR: Reading a known page (use confluence_get_page or confluence_get_page_by_title).

PARAMETERS:
- query: CQL query, e.g. 'type=page AND space=DEV AND text~"deploy"' (required)
- limit: Max results, 1-50 (default 10)

RETURNS: Matching pages with id, title, space, url, last modified date and an excerpt.`,
		Params: []Param{
			{Name: "query", Type: TypeString, Required: true, Description: "CQL query string (e.g. 'type=page AND space=DEV')"},
			{Name: "limit", Type: TypeInteger, Default: DefaultLimit, Min: ptr(1), Max: ptr(MaxSearchLimit), Description: "Maximum number of results (1-50)"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "confluence_get_page",
		Method:   "ConfluenceGetPage",
		Title:    "Get Confluence Page",
		Category: "read",
		Backend:  BackendConfluence,
		Description: `Read a Confluence page by id, converted to Markdown.

USE WHEN: You have a page id from search results or a link.

NOT FOR: Pages known only by title (use confluence_get_page_by_title). Very long pages (use confluence_split_page).

PARAMETERS:
- page_id: Confluence page id (required)
- include_metadata: Include title, version, author, space and url (default true)

RETURNS: Page content, plus metadata when requested.`,
		Params: []Param{
			{Name: "page_id", Type: TypeString, Required: true, Description: "Confluence page ID"},
			{Name: "include_metadata", Type: TypeBoolean, Default: true, Description: "Whether to include page metadata"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "confluence_split_page",
		Method:   "ConfluenceSplitPage",
		Title:    "Split Confluence Page",
		Category: "read",
		Backend:  BackendConfluence,
		Description: `Read a long Confluence page in heading-aware parts.

USE WHEN: A page is too long to read at once, or you only need some sections.

NOT FOR: Short pages (use confluence_get_page).

PARAMETERS:
- page_id: Confluence page id (required)
- start: Index of the first part (default 0)
- limit: Max parts to return, 1-100 (default 10)

RETURNS: The requested window of parts and the total part count.`,
		Params: []Param{
			{Name: "page_id", Type: TypeString, Required: true, Description: "Confluence page ID"},
			{Name: "start", Type: TypeInteger, Default: 0, Min: ptr(0), Description: "Index of the first part"},
			{Name: "limit", Type: TypeInteger, Default: DefaultLimit, Min: ptr(1), Max: ptr(MaxSplitLimit), Description: "Maximum number of parts (1-100)"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "confluence_get_comments",
		Method:   "ConfluenceGetComments",
		Title:    "Get Confluence Comments",
		Category: "read",
		Backend:  BackendConfluence,
		Description: `Get all comments on a Confluence page, replies included.

USE WHEN: User asks "what did people say about this page", "any feedback on X".

PARAMETERS:
- page_id: Confluence page id (required)

RETURNS: Comments with author, date and content.`,
		Params: []Param{
			{Name: "page_id", Type: TypeString, Required: true, Description: "Confluence page ID"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "confluence_get_page_by_title",
		Method:   "ConfluenceGetPageByTitle",
		Title:    "Get Confluence Page by Title",
		Category: "read",
		Backend:  BackendConfluence,
		Description: `Read a Confluence page by its exact title within a space.

USE WHEN: User names a page ("open the Onboarding page in ENG").

NOT FOR: Fuzzy lookups (use confluence_search).

PARAMETERS:
- space_key: Space key, e.g. ENG (required)
- title: Exact page title (required)
- include_metadata: Include page metadata (default true)

RETURNS: found=false when no page matches; otherwise the page content and metadata.`,
		Params: []Param{
			{Name: "space_key", Type: TypeString, Required: true, Description: "Confluence space key"},
			{Name: "title", Type: TypeString, Required: true, Description: "Exact page title"},
			{Name: "include_metadata", Type: TypeBoolean, Default: true, Description: "Whether to include page metadata"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "confluence_get_space_pages",
		Method:   "ConfluenceGetSpacePages",
		Title:    "List Confluence Space Pages",
		Category: "read",
		Backend:  BackendConfluence,
		Description: `List pages in a Confluence space.

USE WHEN: User asks "what's in the ENG space", "list pages in X".

PARAMETERS:
- space_key: Space key (required)
- start: Offset of the first page (default 0)
- limit: Max pages, 1-50 (default 10)

RETURNS: Pages with id, title, version, url and an excerpt.`,
		Params: []Param{
			{Name: "space_key", Type: TypeString, Required: true, Description: "Confluence space key"},
			{Name: "start", Type: TypeInteger, Default: 0, Min: ptr(0), Description: "Offset of the first page"},
			{Name: "limit", Type: TypeInteger, Default: DefaultLimit, Min: ptr(1), Max: ptr(MaxSearchLimit), Description: "Maximum number of pages (1-50)"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// JIRA
	// ==========================================================================
	{
		Name:     "jira_get_issue",
		Method:   "JiraGetIssue",
		Title:    "Get Jira Issue",
		Category: "read",
		Backend:  BackendJira,
		Description: `Get a Jira issue with description, links and comments.

USE WHEN: You have an issue key like PROJ-123.

NOT FOR: Finding issues (use jira_search).

PARAMETERS:
- issue_key: Issue key, e.g. PROJ-123 (required)
- expand: Fields to expand (optional)

RETURNS: A readable issue report and its key fields as metadata.`,
		Params: []Param{
			{Name: "issue_key", Type: TypeString, Required: true, Description: "Jira issue key (e.g., 'PROJ-123')"},
			{Name: "expand", Type: TypeString, Description: "Optional fields to expand"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "jira_search",
		Method:   "JiraSearch",
		Title:    "Search Jira",
		Category: "search",
		Backend:  BackendJira,
		Description: `Search Jira issues with JQL.

USE WHEN: User asks "open bugs assigned to me", "issues mentioning X".

NOT FOR: Listing one project newest-first (use jira_get_project_issues).

PARAMETERS:
- jql: JQL query (required)
- fields: Comma-separated fields (default *all)
- start: Offset of the first hit (default 0)
- limit: Max results, 1-50 (default 10)
- expand: Fields to expand (optional)

RETURNS: Issues with key, title, type, status, priority, link and an excerpt.`,
		Params: []Param{
			{Name: "jql", Type: TypeString, Required: true, Description: "JQL query string"},
			{Name: "fields", Type: TypeString, Default: "*all", Description: "Comma-separated fields to return"},
			{Name: "start", Type: TypeInteger, Default: 0, Min: ptr(0), Description: "Offset of the first result"},
			{Name: "limit", Type: TypeInteger, Default: DefaultLimit, Min: ptr(1), Max: ptr(MaxSearchLimit), Description: "Maximum number of results (1-50)"},
			{Name: "expand", Type: TypeString, Description: "Optional fields to expand"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "jira_get_project_issues",
		Method:   "JiraGetProjectIssues",
		Title:    "List Jira Project Issues",
		Category: "read",
		Backend:  BackendJira,
		Description: `List a Jira project's issues, newest first.

USE WHEN: User asks "what's new in PROJ", "latest issues in X".

PARAMETERS:
- project_key: Project key (required)
- start: Offset of the first issue (default 0)
- limit: Max issues, 1-50 (default 10)

RETURNS: Issues with key, title, type, status, created date and link.`,
		Params: []Param{
			{Name: "project_key", Type: TypeString, Required: true, Description: "The project key"},
			{Name: "start", Type: TypeInteger, Default: 0, Min: ptr(0), Description: "Offset of the first issue"},
			{Name: "limit", Type: TypeInteger, Default: DefaultLimit, Min: ptr(1), Max: ptr(MaxSearchLimit), Description: "Maximum number of results (1-50)"},
		},
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "jira_create_issue",
		Method:   "JiraCreateIssue",
		Title:    "Create Jira Issue",
		Category: "write",
		Backend:  BackendJira,
		Description: `Create a Jira issue.

USE WHEN: User says "file a bug", "create a task for X".

PARAMETERS:
- project_key: Project key (required)
- issue_type: Bug, Story, Task... (required)
- summary: Issue title (required)
- description: Issue body (required)
- fields: Extra fields as an object or JSON string (optional)
- update: Update operations, e.g. issuelinks (optional)
- update_history: Add to the user's project history (default false)

RETURNS: The creation response and the submitted fields.`,
		Params: []Param{
			{Name: "project_key", Type: TypeString, Required: true, Description: "The project key where the issue will be created"},
			{Name: "issue_type", Type: TypeString, Required: true, Description: "The type of issue to create (e.g., Bug, Story, Task)"},
			{Name: "summary", Type: TypeString, Required: true, Description: "The issue summary/title"},
			{Name: "description", Type: TypeString, Required: true, Description: "The issue description"},
			{Name: "fields", Type: TypeObjectOrString, Description: "Additional fields to set on the issue"},
			{Name: "update", Type: TypeObject, Description: "Update operations, e.g. issuelinks"},
			{Name: "update_history", Type: TypeBoolean, Default: false, Description: "Whether to update the user's project history"},
		},
		Idempotent: false,
		OpenWorld:  true,
	},
	{
		Name:     "jira_create_issue_link",
		Method:   "JiraCreateIssueLink",
		Title:    "Link Jira Issues",
		Category: "write",
		Backend:  BackendJira,
		Description: `Link two Jira issues.

USE WHEN: User says "mark PROJ-1 as blocking PROJ-2", "relate these issues".

PARAMETERS:
- link_type: Link type name, see jira_get_issue_link_types (required)
- inward_issue: Issue key the link starts from (required)
- outward_issue: Issue key the link points to (required)
- comment: Comment to add with the link (optional)

RETURNS: The link response and the submitted link.`,
		Params: []Param{
			{Name: "link_type", Type: TypeString, Required: true, Description: "The type of link"},
			{Name: "inward_issue", Type: TypeString, Required: true, Description: "Link from issue key"},
			{Name: "outward_issue", Type: TypeString, Required: true, Description: "Link to issue key"},
			{Name: "comment", Type: TypeString, Description: "Comment"},
		},
		OpenWorld: true,
	},
	{
		Name:     "jira_get_issue_link_types",
		Method:   "JiraGetIssueLinkTypes",
		Title:    "Get Jira Link Types",
		Category: "read",
		Backend:  BackendJira,
		Description: `List the issue link types configured in Jira.

USE WHEN: Before jira_create_issue_link, to pick a valid link type.

RETURNS: The link type catalog.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
