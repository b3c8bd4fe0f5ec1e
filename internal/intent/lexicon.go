package intent

import "github.com/kalambet/draftsmith/internal/catalog"

// keywords maps each built-in category to words and phrases that suggest it.
// Phrases match as whole token sequences.
var keywords = map[string][]string{
	catalog.BusinessFormal: {
		"meeting", "request", "proposal", "report", "schedule", "agenda",
		"contract", "review", "approval", "quarterly", "budget", "policy",
		"announcement", "update", "board", "conference", "appointment",
		"invoice", "partnership", "formal",
	},
	catalog.BusinessInquiry: {
		"inquiry", "enquiry", "question", "questions", "information", "pricing",
		"price", "quote", "availability", "details", "clarification",
		"specification", "rates", "asking about", "wondering",
	},
	catalog.CasualFriendly: {
		"friend", "lunch", "coffee", "party", "weekend", "dinner", "birthday",
		"thanks", "fun", "drinks", "hang out", "congrats", "congratulations",
		"vacation", "movie", "hey",
	},
	catalog.CasualCheckIn: {
		"check in", "checking in", "touch base", "how are you", "catch up",
		"status", "progress", "checking", "doing", "been a while",
	},
	catalog.SalesPersuasive: {
		"offer", "product", "demo", "pitch", "solution", "discount", "sale",
		"deal", "trial", "roi", "upgrade", "introducing", "buy", "purchase",
		"promotion", "launch", "persuade",
	},
	catalog.SalesFollowUp: {
		"follow up", "following up", "reminder", "previous", "last week",
		"earlier", "circling back", "circle back", "our call", "our conversation",
		"revisit", "haven't heard",
	},
}

var familyLabels = map[string]string{
	"business": "Business or professional",
	"casual":   "Personal or casual",
	"sales":    "Sales or marketing",
}

var categoryLabels = map[string]string{
	catalog.BusinessFormal:  "A formal message (meeting, request, update)",
	catalog.BusinessInquiry: "Asking for information",
	catalog.CasualFriendly:  "A friendly note",
	catalog.CasualCheckIn:   "Checking in on someone or something",
	catalog.SalesPersuasive: "Pitching a product or offer",
	catalog.SalesFollowUp:   "Following up on an earlier conversation",
}
