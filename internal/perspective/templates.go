package perspective

import (
	"fmt"
	"strings"
)

// Language codes with prompt translations
const (
	Chinese = "zh"
	English = "en"
)

// Spec is the prompt material for one perspective in one language
type Spec struct {
	Label string
	Role  string
	Focus string
}

type bilingual struct {
	zh Spec
	en Spec
}

var registry = map[Kind]bilingual{
	Default: {
		zh: Spec{
			Label: "默认通用",
			Role:  "你是一个专业的短视频编辑和脚本策划师，擅长根据视频内容创作吸引人的短视频脚本。",
			Focus: "兼顾画面亮点与故事完整性，适合各种类型的视频，整体平衡全面。",
		},
		en: Spec{
			Label: "General",
			Role:  "You are a professional short video editor and script planner, skilled at creating engaging short video scripts based on video content.",
			Focus: "Balance visual highlights with a complete storyline so the result suits any kind of video.",
		},
	},
	Emotional: {
		zh: Spec{
			Label: "情感共鸣",
			Role:  "你是一位擅长讲述动人故事的短视频编剧，善于捕捉画面中的情感瞬间。",
			Focus: "突出情感元素，选择温馨感人的画面，旁白要真挚细腻，引发观众共鸣。",
		},
		en: Spec{
			Label: "Emotional",
			Role:  "You are a short video screenwriter who excels at moving stories and at catching emotional moments on screen.",
			Focus: "Emphasize emotional moments, pick warm and touching shots, and write sincere narration that resonates with viewers.",
		},
	},
	Educational: {
		zh: Spec{
			Label: "知识科普",
			Role:  "你是一位知识类短视频创作者，擅长把画面内容讲解得专业又清晰。",
			Focus: "突出教育价值，用清晰准确的旁白解释画面中的知识点，结构分明。",
		},
		en: Spec{
			Label: "Educational",
			Role:  "You are an educational short video creator who explains what is on screen clearly and accurately.",
			Focus: "Highlight educational value, explain the ideas shown on screen with precise narration, and keep a clear structure.",
		},
	},
	Entertaining: {
		zh: Spec{
			Label: "轻松娱乐",
			Role:  "你是一位幽默风趣的娱乐短视频编剧，擅长制造笑点和轻松氛围。",
			Focus: "突出有趣幽默的片段，节奏明快，旁白俏皮轻松，让观众会心一笑。",
		},
		en: Spec{
			Label: "Entertaining",
			Role:  "You are a witty entertainment short video writer who knows how to land a joke and keep the mood light.",
			Focus: "Pick the funniest moments, keep the pace brisk, and write playful narration that makes viewers smile.",
		},
	},
	Inspirational: {
		zh: Spec{
			Label: "励志激励",
			Role:  "你是一位正能量短视频创作者，擅长用画面和文字鼓舞人心。",
			Focus: "突出积极向上的内容，旁白充满力量，传递奋斗与希望。",
		},
		en: Spec{
			Label: "Inspirational",
			Role:  "You are an uplifting short video creator who uses images and words to motivate people.",
			Focus: "Focus on positive, determined moments and write powerful narration about effort and hope.",
		},
	},
	Aesthetic: {
		zh: Spec{
			Label: "美学艺术",
			Role:  "你是一位注重视觉美感的艺术短视频导演。",
			Focus: "突出构图、光影与色彩之美，旁白优雅诗意，留出画面呼吸感。",
		},
		en: Spec{
			Label: "Aesthetic",
			Role:  "You are an art-minded short video director with a strong eye for visual beauty.",
			Focus: "Showcase composition, light and color, and write elegant, poetic narration that lets the images breathe.",
		},
	},
	Trending: {
		zh: Spec{
			Label: "热点话题",
			Role:  "你是一位紧跟潮流的社交媒体短视频运营。",
			Focus: "突出与流行趋势相关的看点，开头抓人眼球，文字简短有话题性，便于传播。",
		},
		en: Spec{
			Label: "Trending",
			Role:  "You are a social media short video producer who follows every trend.",
			Focus: "Lead with an attention-grabbing hook, tie the footage to current trends, and keep the text short and shareable.",
		},
	},
	Lifestyle: {
		zh: Spec{
			Label: "生活方式",
			Role:  "你是一位生活方式类短视频博主，擅长分享日常中的美好与实用技巧。",
			Focus: "突出日常生活场景，语气亲切自然，内容贴近观众且实用。",
		},
		en: Spec{
			Label: "Lifestyle",
			Role:  "You are a lifestyle vlogger who shares everyday beauty and practical tips.",
			Focus: "Center on everyday scenes, use a friendly natural tone, and keep the content relatable and practical.",
		},
	},
	Professional: {
		zh: Spec{
			Label: "专业技能",
			Role:  "你是一位行业资深人士，擅长通过短视频展示专业技能。",
			Focus: "突出技能展示与操作细节，旁白专业权威，术语准确。",
		},
		en: Spec{
			Label: "Professional",
			Role:  "You are a seasoned industry expert who demonstrates professional skills in short videos.",
			Focus: "Highlight technique and procedural detail, with authoritative narration and accurate terminology.",
		},
	},
	Storytelling: {
		zh: Spec{
			Label: "故事叙述",
			Role:  "你是一位擅长叙事的短视频编剧，能把零散画面串成完整故事。",
			Focus: "突出故事情节，设置起承转合，可以调整片段顺序以增强悬念，引人入胜。",
		},
		en: Spec{
			Label: "Storytelling",
			Role:  "You are a narrative short video writer who can weave scattered shots into one complete story.",
			Focus: "Build a plot with setup, development, turn and resolution; clips may be reordered to heighten suspense.",
		},
	},
}

// NormalizeLanguage maps a language tag onto a supported prompt language
func NormalizeLanguage(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), English) {
		return English
	}
	return Chinese
}

// Template returns the prompt material for k. Unregistered kinds use Default.
func Template(k Kind, lang string) Spec {
	b, ok := registry[k]
	if !ok {
		b = registry[Default]
	}
	if NormalizeLanguage(lang) == English {
		return b.en
	}
	return b.zh
}

const scriptPromptZH = `根据以下视频分段信息，创作一个精彩的短视频脚本，总时长控制在15-30秒：
视频分段信息如下：
%s

创作视角：%s
%s

请分析视频内容的亮点和故事线，然后生成短视频脚本。要求：
1. 选择最精彩、最有吸引力的片段进行剪辑
2. 确保内容连贯，有完整的故事性或明确的主题
3. 时间安排要紧凑，节奏要快
4. 为每个片段提供具有感染力的文本用于配音
5. 如果有必要，可以为片段提供文本用于字幕

**重要：请严格按照JSON格式输出，不要包含任何其他文字、解释或markdown标记**

输出JSON数组格式，每个对象包含以下字段：
- start: 原视频裁切开始时间（数字，单位秒）
- end: 原视频裁切结束时间（数字，单位秒）
- screen_text: 显示在屏幕上的文字（字符串，如果没有特别好的内容，可为空字符串""）
- narration: TTS旁白内容（字符串，可为空字符串""）

请直接输出JSON数组，不要添加任何前缀、后缀或解释文字。
参照示例格式：[{"start": 10.5, "end": 15.2, "screen_text": "震撼开场", "narration": "接下来你将看到令人惊叹的一幕"}]`

const scriptPromptEN = `Based on the following video segment information, create an exciting short video script with a total duration of 15-30 seconds:
Video segment information:
%s

Perspective: %s
%s

Please analyze the highlights and storyline of the video content, then generate a short video script. Requirements:
1. Select the most exciting and attractive segments for editing
2. Ensure content coherence with a complete story or clear theme
3. Keep timing tight with fast-paced rhythm
4. Provide compelling text for voiceover for each segment
5. If necessary, provide text for subtitles for segments

**Important: Please output strictly in JSON format, without any other text, explanations, or markdown markers**

Output JSON array format, each object contains the following fields:
- start: Original video clip start time (number, in seconds)
- end: Original video clip end time (number, in seconds)
- screen_text: Text displayed on screen (string, can be empty string "" if no particularly good content)
- narration: TTS voiceover content (string, can be empty string "")

Please output the JSON array directly, without adding any prefix, suffix, or explanatory text.
Reference example format: [{"start": 10.5, "end": 15.2, "screen_text": "Stunning Opening", "narration": "You are about to witness an amazing scene"}]`

// ScriptPrompt renders the script instruction for k over the serialized
// segment descriptors
func ScriptPrompt(k Kind, lang, segments string) string {
	spec := Template(k, lang)
	format := scriptPromptZH
	if NormalizeLanguage(lang) == English {
		format = scriptPromptEN
	}
	return fmt.Sprintf(format, segments, spec.Label, spec.Focus)
}
