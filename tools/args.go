package tools

// Argument structs, decoded from the validated argument map by json tag.

type ConfluenceSearchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type ConfluenceGetPageArgs struct {
	PageID          string `json:"page_id"`
	IncludeMetadata bool   `json:"include_metadata"`
}

type ConfluenceSplitPageArgs struct {
	PageID string `json:"page_id"`
	Start  int    `json:"start"`
	Limit  int    `json:"limit"`
}

type ConfluenceGetCommentsArgs struct {
	PageID string `json:"page_id"`
}

type ConfluenceGetPageByTitleArgs struct {
	SpaceKey        string `json:"space_key"`
	Title           string `json:"title"`
	IncludeMetadata bool   `json:"include_metadata"`
}

type ConfluenceGetSpacePagesArgs struct {
	SpaceKey string `json:"space_key"`
	Start    int    `json:"start"`
	Limit    int    `json:"limit"`
}

type JiraGetIssueArgs struct {
	IssueKey string `json:"issue_key"`
	Expand   string `json:"expand"`
}

type JiraSearchArgs struct {
	JQL    string `json:"jql"`
	Fields string `json:"fields"`
	Start  int    `json:"start"`
	Limit  int    `json:"limit"`
	Expand string `json:"expand"`
}

type JiraGetProjectIssuesArgs struct {
	ProjectKey string `json:"project_key"`
	Start      int    `json:"start"`
	Limit      int    `json:"limit"`
}

type JiraCreateIssueArgs struct {
	ProjectKey  string `json:"project_key"`
	IssueType   string `json:"issue_type"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	// Fields is an object or a JSON string holding one.
	Fields        any            `json:"fields"`
	Update        map[string]any `json:"update"`
	UpdateHistory bool           `json:"update_history"`
}

type JiraCreateIssueLinkArgs struct {
	LinkType     string `json:"link_type"`
	InwardIssue  string `json:"inward_issue"`
	OutwardIssue string `json:"outward_issue"`
	Comment      string `json:"comment"`
}

type JiraGetIssueLinkTypesArgs struct{}
