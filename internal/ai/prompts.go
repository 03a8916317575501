package ai

import (
	"fmt"
	"strings"

	"github.com/danaingraham/storyhealer/internal/models"
)

// PageContext carries the page fields prompt builders need.
type PageContext struct {
	Number             int
	Text               string
	IllustrationPrompt string
	CharactersInScene  []string
}

// StoryContext carries the story fields prompt builders need. Builders
// take it explicitly so no ambient story state leaks into the prompts.
type StoryContext struct {
	Title           string
	ChildName       string
	ChildAge        int
	ChildAppearance string
	FearDescription string
	PageCount       int
}

// BuildIntentPrompt asks the model to classify an edit request against
// the current page. The decision policy biases hard toward "text"; the
// examples anchor the boundary cases.
func BuildIntentPrompt(message string, page PageContext, story StoryContext) string {
	return fmt.Sprintf(`You are an AI assistant helping to edit a children's story. Analyze the user's message and determine what they want to change.

CURRENT PAGE INFO:
- Text: %q
- Illustration description: %q
- Character: %s (%s)
- Story theme: Overcoming fear of %s

USER MESSAGE: %q

INSTRUCTIONS:
- DEFAULT to "text" unless explicitly about images
- ONLY use "image" if they specifically mention: picture, image, illustration, visual, drawing, art, colors, scene visuals
- Use "text" for: story changes, making things exciting/scary/happy, character actions, dialogue, plot changes, emotions
- Use "both" only if they explicitly want both text AND image changes
- Use "global" only for permanent character appearance changes (hair, height, clothing style)
- Use "unclear" only if completely unrelated to story editing

EXAMPLES:
- "Make it more exciting" -> text
- "Make the character happy" -> text
- "Add some action" -> text
- "Make it scarier" -> text
- "Add a rainbow to the picture" -> image
- "Change the illustration" -> image
- "Update the drawing" -> image
- "Make text more exciting and add rainbow to image" -> both
- "Change character hair color permanently" -> global

Return ONLY valid JSON:
{
  "updateType": "text|image|both|global|unclear",
  "instruction": "detailed instruction for single updates",
  "textInstruction": "instruction for text changes (for both)",
  "imageInstruction": "instruction for image changes (for both)",
  "scope": "current_page|all_pages"
}`,
		page.Text, page.IllustrationPrompt,
		story.ChildName, story.ChildAppearance, story.FearDescription,
		message)
}

// BuildTextRewritePrompt asks the model to rewrite one page's text per
// the user's instruction. The response must be plain text, not JSON;
// ExtractText handles models that ignore that.
func BuildTextRewritePrompt(instruction string, page PageContext, story StoryContext) string {
	return fmt.Sprintf(`You are helping edit a children's story. Update the page text based on the user's request.

CURRENT TEXT: %q
CHARACTER: %s, age %d
STORY THEME: Overcoming fear of %s

USER REQUEST: %q

REQUIREMENTS:
- Keep it age-appropriate for a %d-year-old
- Around 30-50 words (1-2 sentences)
- Maintain the story's theme of overcoming fears
- Keep the character name as %s
- Make it engaging and positive

IMPORTANT: Return ONLY the story text as a plain string. Do NOT wrap it in JSON. Do NOT include any keys or brackets. Just return the story text directly.`,
		page.Text, story.ChildName, story.ChildAge, story.FearDescription,
		instruction, story.ChildAge, story.ChildName)
}

// BuildImagePromptRewrite asks the model to fold the user's instruction
// into the page's illustration prompt.
func BuildImagePromptRewrite(instruction string, page PageContext, story StoryContext) string {
	return fmt.Sprintf(`Update this illustration prompt based on the user's instruction.

Current prompt: %q
Character: %s - %s
Page text: %q

User instruction: %q

Return an updated illustration prompt that incorporates the requested changes. Return ONLY the prompt text.`,
		page.IllustrationPrompt, story.ChildName, story.ChildAppearance,
		page.Text, instruction)
}

// BuildAppearanceRewritePrompt asks the model to fold a permanent
// appearance change into the character description.
func BuildAppearanceRewritePrompt(instruction, childName, currentAppearance string) string {
	return fmt.Sprintf(`The user wants to make a global change to the character %s.
Current appearance: %s

User instruction: %q

Return an updated character appearance description that incorporates the change. Return ONLY the description text.`,
		childName, currentAppearance, instruction)
}

// BuildInsertPagePrompt asks the model for the content of a page slotted
// between prev and next. Either neighbor may be nil: a nil prev means
// the new page opens the story, a nil next means it closes it.
func BuildInsertPagePrompt(story StoryContext, prev, next *PageContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are helping to insert a new page into a children's story about %s overcoming their fear of %s.

Character: %s - %s
Story Title: %s

`, story.ChildName, story.FearDescription, story.ChildName, story.ChildAppearance, story.Title)

	if prev != nil {
		fmt.Fprintf(&b, "Previous page text: %q\n", prev.Text)
	} else {
		b.WriteString("This will be the first page of the story.\n")
	}
	if next != nil {
		fmt.Fprintf(&b, "Next page text: %q\n", next.Text)
	} else {
		b.WriteString("This will be the last page of the story.\n")
	}

	placement := "between these pages"
	flow := "Flow smoothly from the previous page to the next page"
	if prev == nil {
		placement = "as the opening of the story"
		flow = "Introduce the story and character"
	}

	fmt.Fprintf(&b, `
Create a new page that fits naturally %s. The text should:
- Be 2-3 sentences (30-50 words)
- %s
- Continue the story progression about overcoming fear of %s
- Be age-appropriate for a %d-year-old

Return JSON with this format:
{
  "text": "The new page text...",
  "illustrationPrompt": "Detailed description for the illustration...",
  "charactersInScene": [%q]
}`, placement, flow, story.FearDescription, story.ChildAge, story.ChildName)

	return b.String()
}

// BuildHolisticPrompt asks the model to rewrite every page so the texts
// cohere with the illustration prompts and with each other.
func BuildHolisticPrompt(instruction string, story StoryContext, pages []PageContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a professional children's story writer. Rewrite ALL pages of this story to be cohesive and match the visual content.

STORY INFO:
- Title: %s
- Child: %s, age %d
- Theme: Overcoming fear of %s
- Total pages: %d

USER REQUEST: %q

CURRENT PAGES AND THEIR VISUAL CONTENT:
`, story.Title, story.ChildName, story.ChildAge, story.FearDescription, len(pages), instruction)

	for _, p := range pages {
		fmt.Fprintf(&b, `
Page %d:
- Current text: %q
- Visual description: %q
- Characters in scene: %s
`, p.Number, p.Text, p.IllustrationPrompt, strings.Join(p.CharactersInScene, ", "))
	}

	fmt.Fprintf(&b, `
TASK: Rewrite ALL page texts to:
1. Match the visual content described in each page's illustration prompt
2. Create a cohesive story flow from page 1 to %d
3. Maintain the theme of overcoming fear of %s
4. Keep %s as the main character
5. Use age-appropriate language for a %d-year-old
6. Each page should be 30-50 words (1-2 sentences)

Return ONLY a JSON object with this exact structure:
{
  "pages": [
    {"pageNumber": 1, "newText": "Updated text for page 1..."},
    {"pageNumber": 2, "newText": "Updated text for page 2..."}
  ]
}

IMPORTANT: Return ONLY the JSON object, no additional text or explanation.`,
		len(pages), story.FearDescription, story.ChildName, story.ChildAge)

	return b.String()
}

// PageAnalysis pairs a page with the visual description grounding its
// rewrite, either a vision result or the stored illustration prompt.
type PageAnalysis struct {
	Number      int
	CurrentText string
	Analysis    string
}

// BuildVisionHolisticPrompt is the vision-grounded variant of
// BuildHolisticPrompt: rewrites are anchored to what the vision model
// actually saw in the uploaded images.
func BuildVisionHolisticPrompt(instruction string, story StoryContext, analyses []PageAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a professional children's story writer. The actual images in this children's book were analyzed with AI vision. Rewrite ALL pages to match what is actually shown in the images.

STORY INFO:
- Title: %s
- Child: %s, age %d
- Theme: Overcoming fear of %s
- Total pages: %d

USER REQUEST: %q

ACTUAL IMAGE ANALYSES (what the vision model saw in each image):
`, story.Title, story.ChildName, story.ChildAge, story.FearDescription, len(analyses), instruction)

	for _, a := range analyses {
		fmt.Fprintf(&b, `
Page %d:
- Current text: %q
- ACTUAL IMAGE CONTENT: %q
`, a.Number, a.CurrentText, a.Analysis)
	}

	fmt.Fprintf(&b, `
TASK: Rewrite ALL page texts to:
1. Match exactly what is shown in the actual images (use the ACTUAL IMAGE CONTENT descriptions)
2. Create a cohesive story flow from page 1 to %d
3. Maintain the theme of overcoming fear of %s
4. Keep %s as the main character
5. Use age-appropriate language for a %d-year-old
6. Each page should be 30-50 words (1-2 sentences)
7. Make sure the text describes what is actually happening in each image

Return ONLY a JSON object with this exact structure:
{
  "pages": [
    {"pageNumber": 1, "newText": "Text that matches what's actually in the image..."},
    {"pageNumber": 2, "newText": "Text that matches what's actually in the image..."}
  ]
}

IMPORTANT: Base the story text on the ACTUAL IMAGE CONTENT, not the old text or descriptions. Return ONLY the JSON object.`,
		len(analyses), story.FearDescription, story.ChildName, story.ChildAge)

	return b.String()
}

// BuildPageVisionPrompt guides the vision model when analyzing one
// uploaded page image.
func BuildPageVisionPrompt() string {
	return `Analyze this image for a children's story page. Describe:
1. What is happening in the scene?
2. What emotions or actions are shown?
3. What objects, settings, or environments are visible?
4. How does this relate to a story about a child overcoming fears?

Be specific and detailed - this will be used to write story text that matches the image exactly.`
}

// BuildStoryPrompt asks the model for a complete six-page story with
// per-page illustration prompts.
func BuildStoryPrompt(child *models.Child, fearDescription string) string {
	return fmt.Sprintf(`Create a heartwarming, age-appropriate children's story for %s, a %d-year-old child who is afraid of %s.

Character appearance: %s

Requirements:
- Exactly 6 pages of story content
- %s must be the brave hero who overcomes their fear
- Age-appropriate language for a %d-year-old
- Positive, encouraging tone that builds confidence
- Each page should have 2-3 sentences (about 30-50 words per page)
- Story should show gradual progression from fear to courage
- Include supportive friends, family, or magical helpers
- End with %s feeling proud and confident

Format the response as JSON with this structure:
{
  "title": "Story Title",
  "pages": [
    {
      "page_number": 1,
      "text": "Page 1 story text...",
      "illustration_prompt": "Detailed description for AI image generation...",
      "characters_in_scene": ["character1", "character2"]
    }
  ]
}

Make each illustration_prompt very detailed, including the scene setting, character positions, emotions, and visual elements. Always include %q as the main character with this appearance: %s.`,
		child.Name, child.Age, fearDescription,
		child.AppearanceDescription,
		child.Name, child.Age, child.Name,
		child.Name, child.AppearanceDescription)
}

// EnhanceIllustrationPrompt wraps a scene prompt with the character
// consistency and style requirements every generated illustration
// shares. The repetition is deliberate: image models drift on character
// features unless the appearance is restated.
func EnhanceIllustrationPrompt(basePrompt, childName, appearance, pageText string) string {
	return fmt.Sprintf(`Create a children's book illustration showing EXACTLY this specific child character throughout the entire story:

CRITICAL - EXACT CHARACTER APPEARANCE (must be consistent across all pages):
Name: %s
EXACT Appearance: %s

IMPORTANT: This is the SAME child character %s who appears in every page of this story.
DO NOT change their ethnicity, skin color, hair color, or any physical features between pages.
The character must look EXACTLY as described above - maintain complete consistency.

SCENE TO ILLUSTRATE: %q

SCENE DETAILS: %s

STYLE REQUIREMENTS:
- Professional children's book illustration (like modern picture books)
- Warm, friendly, colorful style
- Show the character's emotions matching the story text
- Include background elements from the scene
- Child-friendly and age-appropriate

TECHNICAL REQUIREMENTS:
- No text, letters, or words anywhere in the image
- Safe, positive, age-appropriate content
- Clear focus on the story action and character
- Composition suitable for a book page layout`,
		childName, appearance, childName, pageText, basePrompt)
}

// StyleEmphasisSuffix is appended to enhanced prompts when the edit
// changes the artistic style, so the consistency boilerplate does not
// drown out the requested style.
func StyleEmphasisSuffix(instruction string) string {
	return fmt.Sprintf("\n\nARTISTIC STYLE OVERRIDE: The user explicitly requested this style change: %q. The artistic style requirement takes priority over the default illustration style above. Apply it to the whole image.", instruction)
}
