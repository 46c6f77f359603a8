package reconstruct

// lexicon.go centralizes every canned phrase the T1-T6 transforms
// splice in, keyed by language and intensity/category, so the rewrite
// pipeline itself stays declarative.

type phraseSet map[string]map[string][]string // lang -> category -> phrases

var hookPhrases = phraseSet{
	"en": {
		"positive": {"You won't believe what happens next —", "This is the moment everything changes:"},
		"negative": {"It all fell apart in an instant —", "Nobody saw this coming:"},
		"intense":  {"Stop scrolling. Watch this.", "This escalated fast —"},
		"neutral":  {"Here's what really happened:", "Let's break this down:"},
	},
	"zh": {
		"positive": {"接下来发生的事你绝对想不到——", "一切都在这一刻改变了："},
		"negative": {"一瞬间，一切都崩溃了——", "谁也没想到会这样："},
		"intense":  {"别划走,看这个。", "事情突然失控了——"},
		"neutral":  {"真相是这样的：", "我们来梳理一下："},
	},
}

var amplifierPhrases = phraseSet{
	"en": {
		"high":       {"and it was absolutely unbelievable", "and nothing would ever be the same"},
		"medium":     {"and things got tense", "and the mood shifted"},
		"contextual": {"right there, in that moment", "without any warning"},
	},
	"zh": {
		"high":       {"简直难以置信", "一切都不一样了"},
		"medium":     {"气氛变得紧张起来", "情绪开始转变"},
		"contextual": {"就在那一刻", "毫无预兆地"},
	},
}

var suspenseConnectors = phraseSet{
	"en": {
		"low":    {"but something felt off"},
		"medium": {"but that was only the beginning"},
		"high":   {"but what came next changed everything"},
	},
	"zh": {
		"low":    {"但总觉得有些不对劲"},
		"medium": {"但这只是开始"},
		"high":   {"但接下来发生的事改变了一切"},
	},
}

var climaxIntensifiers = phraseSet{
	"en": {
		"dramatic":    {"— and the room fell silent."},
		"emotional":   {"— and tears finally came."},
		"suspenseful": {"— and no one knew what would happen next."},
	},
	"zh": {
		"dramatic":    {"——房间里瞬间安静下来。"},
		"emotional":   {"——泪水终于落下。"},
		"suspenseful": {"——没有人知道接下来会发生什么。"},
	},
}

var engagementTriggers = phraseSet{
	"en": {"default": {"Would you have done the same? Let us know below.", "Share this if it hit you too."}},
	"zh": {"default": {"换作是你，会怎么做？评论区告诉我们。", "如果你也有共鸣，请分享这条视频。"}},
}

func pick(set phraseSet, lang, category string, seed int) string {
	langPhrases, ok := set[lang]
	if !ok {
		langPhrases = set["en"]
	}
	phrases, ok := langPhrases[category]
	if !ok || len(phrases) == 0 {
		for _, v := range langPhrases {
			phrases = v
			break
		}
	}
	if len(phrases) == 0 {
		return ""
	}
	return phrases[seed%len(phrases)]
}
