package clickup

// User is the authenticated ClickUp account.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Team is a ClickUp workspace.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Space is a workspace subdivision containing folders and lists.
type Space struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

// Folder groups lists inside a space.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List is the container tasks are created in.
type List struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TaskCount int    `json:"task_count"`
}

// Field is a custom field defined on a list.
type Field struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CustomFieldValue sets one custom field on a task.
type CustomFieldValue struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// TaskRequest is the body for task creation.
type TaskRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Assignees    []int              `json:"assignees"`
	Tags         []string           `json:"tags,omitempty"`
	Status       string             `json:"status,omitempty"`
	Priority     int                `json:"priority,omitempty"`
	NotifyAll    bool               `json:"notify_all"`
	CustomFields []CustomFieldValue `json:"custom_fields,omitempty"`
}

// Task is the created task as returned by the API.
type Task struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type userResponse struct {
	User User `json:"user"`
}

type teamsResponse struct {
	Teams []Team `json:"teams"`
}

type spacesResponse struct {
	Spaces []Space `json:"spaces"`
}

type foldersResponse struct {
	Folders []Folder `json:"folders"`
}

type listsResponse struct {
	Lists []List `json:"lists"`
}

type fieldsResponse struct {
	Fields []Field `json:"fields"`
}
