package models

// ResourceTag names a class of remote resources whose freshness is tracked
// with a single validation token.
type ResourceTag string

const (
	TagCurrentUser   ResourceTag = "CURRENT_USER"
	TagAllPosts      ResourceTag = "ALL_POSTS"
	TagSettings      ResourceTag = "SETTINGS"
	TagConfiguration ResourceTag = "CONFIGURATION"
	TagBlogVersion   ResourceTag = "BLOG_VERSION"
)

// ETag is the last validation token seen from the server for a resource
// class. At most one live record exists per tag; recording a new token
// replaces the old record instead of accumulating.
type ETag struct {
	Type  ResourceTag
	Value string
}
