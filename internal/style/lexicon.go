package style

// Marker lists are matched as whole token sequences against lowercased text.

var formalMarkers = []string{
	"dear", "sincerely", "regards", "respectfully", "cordially", "kindly",
	"furthermore", "therefore", "hereby", "attached", "appreciate", "pleased",
	"accordingly", "please find", "i would like", "thank you for your",
	"yours faithfully", "at your earliest convenience", "do not hesitate",
}

var informalMarkers = []string{
	"hey", "hiya", "yo", "sup", "cool", "awesome", "dude", "gonna", "wanna",
	"kinda", "sorta", "yeah", "yep", "nah", "lol", "btw", "thx", "omg", "haha",
	"cheers", "no worries", "super",
}

var contractionSuffixes = []string{"n't", "'re", "'ll", "'ve", "'m", "'d"}

var contractionWords = map[string]bool{
	"it's": true, "that's": true, "what's": true, "there's": true, "here's": true,
	"let's": true, "he's": true, "she's": true, "who's": true, "where's": true,
}

var directPhrases = []string{
	"please", "i need", "we need", "need you to", "can you", "could you",
	"would you", "let me know", "make sure", "must", "asap", "by end of day",
	"send me", "i want", "i expect", "required", "deadline", "confirm",
}

var hedgingPhrases = []string{
	"perhaps", "maybe", "might", "possibly", "i was wondering", "wondering if",
	"if you don't mind", "if possible", "would it be possible", "just wanted",
	"sort of", "kind of", "i think", "i guess", "hopefully", "no rush",
	"whenever you get a chance", "when you have a moment", "no worries",
}

type phrasePattern struct {
	match   string
	display string
}

// Longer patterns come first so "good morning" wins over shorter prefixes.
var salutationPatterns = []phrasePattern{
	{"to whom it may concern", "To whom it may concern"},
	{"good morning", "Good morning"},
	{"good afternoon", "Good afternoon"},
	{"good evening", "Good evening"},
	{"greetings", "Greetings"},
	{"hello", "Hello"},
	{"dear", "Dear"},
	{"hiya", "Hiya"},
	{"hey", "Hey"},
	{"hi", "Hi"},
}

var closingPatterns = []phrasePattern{
	{"warmest regards", "Warmest regards"},
	{"warm regards", "Warm regards"},
	{"best regards", "Best regards"},
	{"kind regards", "Kind regards"},
	{"yours sincerely", "Yours sincerely"},
	{"sincerely yours", "Sincerely yours"},
	{"yours truly", "Yours truly"},
	{"yours faithfully", "Yours faithfully"},
	{"all the best", "All the best"},
	{"best wishes", "Best wishes"},
	{"many thanks", "Many thanks"},
	{"thanks again", "Thanks again"},
	{"thank you", "Thank you"},
	{"talk soon", "Talk soon"},
	{"take care", "Take care"},
	{"respectfully", "Respectfully"},
	{"cordially", "Cordially"},
	{"sincerely", "Sincerely"},
	{"regards", "Regards"},
	{"cheers", "Cheers"},
	{"thanks", "Thanks"},
	{"best", "Best"},
}

var transitionPatterns = []phrasePattern{
	{"on the other hand", "on the other hand"},
	{"in addition", "in addition"},
	{"as a result", "as a result"},
	{"for example", "for example"},
	{"that said", "that said"},
	{"by the way", "by the way"},
	{"in short", "in short"},
	{"additionally", "additionally"},
	{"furthermore", "furthermore"},
	{"moreover", "moreover"},
	{"meanwhile", "meanwhile"},
	{"however", "however"},
}
