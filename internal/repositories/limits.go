package repositories

// Upper bounds for reads that return a whole set rather than a page.
// Callers that need more must page through the owning listing instead.
const (
	// MaxMatchingProfiles caps the profile ids a text or facet filter expands to.
	MaxMatchingProfiles = 5000
	// MaxOpinionComments caps the comments returned for one opinion.
	MaxOpinionComments = 200
	// MaxLikedPosts caps the liked-post window behind the liked feed.
	MaxLikedPosts = 1000
)
