package voice

// Command categories, checked in this order.
const (
	CategoryNavigation     = "navigation"
	CategoryExamNavigation = "exam_navigation"
	CategoryAnswer         = "answer_selection"
	CategoryActions        = "actions"
	CategoryReading        = "reading"
	CategoryAccessibility  = "accessibility"
	CategoryStatus         = "status"
	CategoryUnknown        = "unknown"
)

// ActionGoto carries the requested question number in Command.Value.
const ActionGoto = "goto"

type commandSpec struct {
	action   string
	patterns []string
}

type categorySpec struct {
	name     string
	commands []commandSpec
}

// commandTable is matched top to bottom; the first hit wins.
var commandTable = []categorySpec{
	{CategoryNavigation, []commandSpec{
		{"home", []string{
			`\b(go|navigate|take me|show me)\s*(to\s*)?(home|dashboard|main page|main menu)\b`,
			`^(home|dashboard|main)$`,
			`\b(back to home|return home|go back)\b`,
		}},
		{"exams", []string{
			`\b(go|navigate|take me|show me)\s*(to\s*)?(exams?|exam list|test list|available exams|quiz list)\b`,
			`^(exams?|tests?|quiz|quizzes)$`,
			`\b(show.*exams?|list.*exams?|view.*exams?)\b`,
		}},
		{"results", []string{
			`\b(go|navigate|take me|show me)\s*(to\s*)?(results?|scores?|grades?|my results|my scores)\b`,
			`^(results?|scores?|grades?)$`,
			`\b(show.*results?|view.*scores?|check.*grades?)\b`,
		}},
		{"settings", []string{
			`\b(go|navigate|take me|show me)\s*(to\s*)?(settings?|accessibility|preferences|options|config)\b`,
			`^(settings?|accessibility|preferences|options|config)$`,
			`\b(open.*settings?|access.*settings?)\b`,
		}},
		{"help", []string{
			`\b(help|voice commands|commands|instructions|guide|tutorial)\b`,
			`^(help|commands)$`,
			`\b(show.*help|voice.*help|command.*list)\b`,
		}},
		{"admin", []string{
			`\b(go|navigate|take me|show me)\s*(to\s*)?(admin|administration|admin panel|management)\b`,
			`^(admin|administration)$`,
		}},
	}},
	{CategoryExamNavigation, []commandSpec{
		{"next", []string{
			`\b(next|forward|advance|move ahead|go forward|skip|proceed)\b.*question`,
			`^(next|forward|advance|proceed)$`,
			`\b(next one|move on|continue)\b`,
		}},
		{"previous", []string{
			`\b(previous|back|go back|move back|prior|earlier|last|before)\b.*question`,
			`^(back|previous|prior)$`,
			`\b(go back|step back|move back)\b`,
		}},
		{"first", []string{
			`\b(first|beginning|start|initial)\b.*question`,
			`^(first|start|beginning)$`,
			`\b(go to start|back to first)\b`,
		}},
		{"last", []string{
			`\b(last|final|end)\b.*question`,
			`^(last|end|final)$`,
			`\b(go to end|final question)\b`,
		}},
		{ActionGoto, []string{
			`\b(go to|jump to|navigate to|show me)\b.*\b(question|number|item)\s*(\d+)`,
			`^\b(question|number)\s*(\d+)$`,
			`\b(question|item|number)\s*(\d+)\b`,
		}},
	}},
	{CategoryAnswer, []commandSpec{
		{"option_a", optionPatterns("a", `alpha|alfa`)},
		{"option_b", optionPatterns("b", `bravo|beta`)},
		{"option_c", optionPatterns("c", `charlie|gamma`)},
		{"option_d", optionPatterns("d", `delta`)},
		{"option_e", optionPatterns("e", `echo|epsilon`)},
		{"true", []string{
			`\b(true|yes|correct|right|affirmative)\b`,
			`^(true|yes|t)$`,
			`\b(answer.*true|select.*true|choose.*true)\b`,
		}},
		{"false", []string{
			`\b(false|no|incorrect|wrong|negative)\b`,
			`^(false|no|f)$`,
			`\b(answer.*false|select.*false|choose.*false)\b`,
		}},
	}},
	{CategoryActions, []commandSpec{
		{"save", []string{
			`\b(save|store|record|keep)\b.*answer`,
			`^(save|store)$`,
			`\b(save.*answer|save.*response|record.*answer)\b`,
		}},
		{"submit", []string{
			`\b(submit|finish|complete|turn in|hand in)\b.*exam`,
			`^(submit|finish|complete|done)$`,
			`\b(submit.*exam|finish.*exam|turn.*in)\b`,
		}},
		{"flag", []string{
			`\b(flag|mark|bookmark|tag)\b.*question`,
			`^(flag|mark)$`,
			`\b(flag.*question|mark.*question|bookmark.*question)\b`,
		}},
		{"unflag", []string{
			`\b(unflag|unmark|remove.*flag|clear.*flag)\b`,
			`^(unflag|unmark)$`,
			`\b(remove.*mark|clear.*mark)\b`,
		}},
		{"clear", []string{
			`\b(clear|delete|remove|erase)\b.*answer`,
			`^(clear|delete|remove)$`,
			`\b(clear.*answer|delete.*answer|remove.*answer)\b`,
		}},
	}},
	{CategoryReading, []commandSpec{
		{"read_question", []string{
			`\b(read|speak|say)\b.*question`,
			`^(read|speak)$`,
			`\b(read.*question|speak.*question|say.*question)\b`,
		}},
		{"read_options", []string{
			`\b(read|speak|say)\b.*(options?|choices?|answers?)`,
			`^(options?|choices?)$`,
			`\b(read.*options?|speak.*options?|list.*options?)\b`,
		}},
		{"read_page", []string{
			`\b(read|speak)\s+(page|content|text|everything)\b`,
			`^(read page|speak page)$`,
			`\b(read.*page|speak.*page|read.*all)\b`,
		}},
		{"stop_reading", []string{
			`\b(stop|cancel|halt|pause)\s+(reading|speaking)\b`,
			`^(stop|cancel|halt|pause)$`,
			`\b(stop.*reading|stop.*speaking|cancel.*reading)\b`,
		}},
		{"repeat", []string{
			`\b(repeat|again|say again|read again)\b`,
			`^(repeat|again)$`,
			`\b(say.*again|read.*again|repeat.*that)\b`,
		}},
	}},
	{CategoryAccessibility, []commandSpec{
		{"increase_font", []string{
			`\b(increase|bigger|larger|zoom in)\b.*font`,
			`^(bigger|larger|zoom in)$`,
			`\b(make.*bigger|increase.*size|larger.*text)\b`,
		}},
		{"decrease_font", []string{
			`\b(decrease|smaller|reduce|zoom out)\b.*font`,
			`^(smaller|reduce|zoom out)$`,
			`\b(make.*smaller|decrease.*size|smaller.*text)\b`,
		}},
		{"reset_font", []string{
			`\b(reset|normal|default)\b.*font`,
			`^(reset|normal|default)$`,
			`\b(reset.*size|normal.*size|default.*font)\b`,
		}},
		{"change_theme", []string{
			`\b(change|switch|cycle|toggle)\s+(theme|color|appearance|mode)\b`,
			`^(change theme|switch theme|dark mode|light mode)$`,
			`\b(dark.*mode|light.*mode|high.*contrast)\b`,
		}},
	}},
	{CategoryStatus, []commandSpec{
		{"time", []string{
			`\b(time|timer|remaining|left|how long|how much time)\b`,
			`^(time|timer)$`,
			`\b(time.*remaining|time.*left|minutes.*left)\b`,
		}},
		{"progress", []string{
			`\b(progress|status|how many|completion|percentage)\b`,
			`^(progress|status)$`,
			`\b(how.*far|completion.*rate|progress.*bar)\b`,
		}},
		{"current_question", []string{
			`\b(current|this|which)\b.*question`,
			`^(current|which)$`,
			`\b(current.*question|this.*question|question.*number)\b`,
		}},
		{"total_questions", []string{
			`\b(total|how many|all)\b.*questions?`,
			`^(total|how many)$`,
			`\b(total.*questions?|number.*questions?|all.*questions?)\b`,
		}},
		{"answered", []string{
			`\b(answered|completed|done)\b.*questions?`,
			`^(answered|completed)$`,
			`\b(how.*answered|how.*completed|questions?.*done)\b`,
		}},
		{"flagged", []string{
			`\b(flagged|marked|bookmarked)\b.*questions?`,
			`^(flagged|marked)$`,
			`\b(how.*flagged|how.*marked|flagged.*questions?)\b`,
		}},
	}},
}

func optionPatterns(letter, phonetic string) []string {
	return []string{
		`\b(option|choice|select|choose|pick)\s*` + letter + `\b`,
		`^` + letter + `$`,
		`\b(` + phonetic + `)\b`,
		`\b(letter\s*` + letter + `|option\s*` + letter + `)\b`,
	}
}

// phrases are the canonical spoken forms offered as fuzzy suggestions.
var phrases = []string{
	"go home",
	"go to exams",
	"go to results",
	"go to settings",
	"help",
	"next question",
	"previous question",
	"first question",
	"last question",
	"go to question 1",
	"option a",
	"option b",
	"option c",
	"option d",
	"true",
	"false",
	"save answer",
	"submit exam",
	"flag question",
	"unflag question",
	"clear answer",
	"read question",
	"read options",
	"read page",
	"stop reading",
	"repeat",
	"increase font",
	"decrease font",
	"reset font",
	"change theme",
	"time remaining",
	"progress",
	"current question",
	"total questions",
	"answered questions",
	"flagged questions",
}
