package claude

import "strings"

// ContentAnalysis holds the structured classification extracted from the
// model's labeled response. Every field is always present; parsing never
// fails, it only leaves defaults in place.
type ContentAnalysis struct {
	ContentType    string   `json:"content_type"`
	WebpageURL     string   `json:"webpage_url,omitempty"`
	ResearchTopics []string `json:"research_topics"`
	UserIntent     string   `json:"user_intent"`
	FollowUp       string   `json:"follow_up"`
}

// DefaultContentAnalysis is the value used when classification is missing or
// the upstream call failed.
func DefaultContentAnalysis() ContentAnalysis {
	return ContentAnalysis{
		ContentType:    "unknown",
		ResearchTopics: []string{},
	}
}

// ParseContentAnalysis extracts the labeled lines from the model's answer.
// Labels are matched case-sensitively at line start; unrecognized lines and
// surrounding prose are ignored, so arbitrary model output is safe to feed in.
func ParseContentAnalysis(text string) ContentAnalysis {
	result := DefaultContentAnalysis()

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CONTENT_TYPE:"):
			if v := strings.TrimSpace(strings.TrimPrefix(line, "CONTENT_TYPE:")); v != "" {
				result.ContentType = v
			}
		case strings.HasPrefix(line, "WEBPAGE_URL:"):
			url := strings.TrimSpace(strings.TrimPrefix(line, "WEBPAGE_URL:"))
			if url != "" && url != "none" && url != "unknown" {
				result.WebpageURL = url
			}
		case strings.HasPrefix(line, "RESEARCH_TOPICS:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "RESEARCH_TOPICS:"))
			topics := make([]string, 0)
			for _, topic := range strings.Split(raw, ",") {
				if topic = strings.TrimSpace(topic); topic != "" {
					topics = append(topics, topic)
				}
			}
			result.ResearchTopics = topics
		case strings.HasPrefix(line, "USER_INTENT:"):
			result.UserIntent = strings.TrimSpace(strings.TrimPrefix(line, "USER_INTENT:"))
		case strings.HasPrefix(line, "FOLLOW_UP:"):
			result.FollowUp = strings.TrimSpace(strings.TrimPrefix(line, "FOLLOW_UP:"))
		}
	}

	return result
}
