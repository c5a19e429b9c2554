package quickreply

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/dispatch-core/internal/category"
	"github.com/capitalize-ai/dispatch-core/internal/gateway"
	"github.com/capitalize-ai/dispatch-core/internal/model"
)

func TestBuild_Contextual(t *testing.T) {
	b := NewBuilder(nil, nil)
	d := Decision{Strategy: model.StrategyContextual, Reason: ReasonCategoryDetected, Category: category.Agriculture}

	set := b.Build(d, Input{}, English)
	require.Equal(t, model.StrategyContextual, set.Strategy)
	require.Equal(t, "agriculture", set.Category)
	require.Equal(t, "Common questions about Agriculture:", set.PromptText)
	require.Equal(t, []model.QuickReplyOption{
		{ID: "contextual:agriculture:0", Title: "Crop insurance sc..."},
		{ID: "contextual:agriculture:1", Title: "Kisan credit card"},
		{ID: "contextual:agriculture:2", Title: "Agricultural subs..."},
	}, set.Options)

	mr := b.Build(d, Input{}, Marathi)
	require.Equal(t, "कृषी बद्दल सामान्य प्रश्न:", mr.PromptText)
	require.Equal(t, "पीक विमा योजना", mr.Options[0].Title)
}

func TestBuild_ContextualUnknownCategoryFallsBackToGeneral(t *testing.T) {
	b := NewBuilder(nil, nil)
	set := b.Build(Decision{Strategy: model.StrategyContextual, Category: "transport"}, Input{}, English)
	require.Equal(t, model.StrategyGeneral, set.Strategy)
}

func TestBuild_FollowUp(t *testing.T) {
	b := NewBuilder(nil, nil)
	d := Decision{Strategy: model.StrategyFollowUp}

	set := b.Build(d, Input{BotReply: "Bring these documents to the taluka office with two photographs."}, English)
	require.Equal(t, string(TopicDocuments), set.Category)
	require.Equal(t, "followup:document_required:0", set.Options[0].ID)
	require.Equal(t, "Required document...", set.Options[0].Title)

	set = b.Build(d, Input{BotReply: "Call our office for help between ten and five on weekdays."}, English)
	require.Equal(t, string(TopicContact), set.Category)

	set = b.Build(d, Input{BotReply: "The process takes about two weeks once the form is submitted."}, Marathi)
	require.Equal(t, string(TopicScheme), set.Category)
	require.Equal(t, "अधिक माहितीसाठी:", set.PromptText)
}

func TestBuild_FollowUpSkippedWhenNotRelevant(t *testing.T) {
	b := NewBuilder(nil, nil)
	d := Decision{Strategy: model.StrategyFollowUp}

	cases := map[string]string{
		"short":   "Submit the application form.",
		"request": "To check the application status, please provide your registration number.",
		"thanks":  "Thank you! Your application process has been explained in the message above.",
		"marathi": "धन्यवाद! तुमच्या अर्जाची प्रक्रिया वरील संदेशात सांगितली आहे, कृपया ती वाचा आणि पुढे जा.",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			require.Nil(t, b.Build(d, Input{BotReply: reply}, English))
		})
	}
}

func TestFollowUpRelevant(t *testing.T) {
	require.True(t, FollowUpRelevant(strings.Repeat("a", MinFollowUpReply)))
	require.False(t, FollowUpRelevant(strings.Repeat("a", MinFollowUpReply-1)))
	require.False(t, FollowUpRelevant(strings.Repeat("अ", MinFollowUpReply-1)))
}

func TestBuild_Smart(t *testing.T) {
	b := NewBuilder(nil, nil)
	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "school admission"},
		{Role: model.RoleAssistant, Content: "crop crop crop insurance farmer"},
		{Role: model.RoleUser, Content: "pension for widow"},
		{Role: model.RoleUser, Content: "scholarship for a student"},
		{Role: model.RoleUser, Content: "anything", Category: "welfare"},
	}

	set := b.Build(Decision{Strategy: model.StrategySmart}, Input{History: history}, English)
	require.Equal(t, model.StrategySmart, set.Strategy)
	require.Equal(t, "Suggestions based on your interests:", set.PromptText)
	// education 2, welfare 2 (declared later), assistant turns ignored.
	require.Equal(t, []model.QuickReplyOption{
		{ID: "smart:education:0", Title: "How to get school..."},
		{ID: "smart:welfare:0", Title: "Pension schemes"},
		{ID: "smart:general:0", Title: "🏛️ Gov Schemes"},
	}, set.Options)
}

func TestBuild_SmartWithoutCategoriesIsGeneral(t *testing.T) {
	b := NewBuilder(nil, nil)
	set := b.Build(Decision{Strategy: model.StrategySmart}, Input{History: turns(4)}, English)
	require.Equal(t, model.StrategyGeneral, set.Strategy)
	require.Len(t, set.Options, 3)
}

func TestTopCategories_WindowAndTieBreak(t *testing.T) {
	b := NewBuilder(nil, nil)

	var history []model.ConversationTurn
	// Health turns outside the ten-entry window are ignored.
	for i := 0; i < 5; i++ {
		history = append(history, model.ConversationTurn{Role: model.RoleUser, Content: "hospital"})
	}
	for i := 0; i < 10; i++ {
		content := "birth certificate"
		if i%2 == 0 {
			content = "mgnrega job"
		}
		history = append(history, model.ConversationTurn{Role: model.RoleUser, Content: content})
	}

	// employment 5, certificates 5: employment is declared first.
	require.Equal(t, []category.Category{category.Employment, category.Certificates}, b.TopCategories(history, 2))
	require.Equal(t, []category.Category{category.Employment}, b.TopCategories(history, 1))
}

func TestBuild_GeneralWelcomeNone(t *testing.T) {
	b := NewBuilder(nil, nil)

	general := b.Build(Decision{Strategy: model.StrategyGeneral}, Input{}, Marathi)
	require.Equal(t, "general:menu:0", general.Options[0].ID)
	require.Equal(t, "🏛️ सरकारी योजना", general.Options[0].Title)

	welcome := b.Welcome(English)
	require.Equal(t, model.StrategyWelcome, welcome.Strategy)
	require.Len(t, welcome.Options, 3)

	require.Nil(t, b.Build(Decision{Strategy: model.StrategyNone}, Input{}, English))
}

func TestBuild_OptionsBounded(t *testing.T) {
	b := NewBuilder(nil, nil)
	for _, cat := range category.NewDetector(nil).Categories() {
		for _, lang := range []Language{English, Marathi} {
			set := b.Build(Decision{Strategy: model.StrategyContextual, Category: cat}, Input{}, lang)
			require.LessOrEqual(t, len(set.Options), MaxOptions)
			for _, o := range set.Options {
				require.LessOrEqual(t, utf8.RuneCountInString(o.Title), MaxTitleLength)
			}
		}
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "Kisan credit card", Truncate("Kisan credit card"))
	require.Equal(t, "exactly twenty chars", Truncate("exactly twenty chars"))
	require.Equal(t, "Crop insurance sc...", Truncate("Crop insurance scheme"))
	require.Equal(t, 20, utf8.RuneCountInString(Truncate("शेतकरी प्रशिक्षण कार्यक्रम")))
}

func TestResolve(t *testing.T) {
	b := NewBuilder(nil, nil)

	cases := []struct {
		id   string
		lang Language
		want string
		ok   bool
	}{
		{"contextual:agriculture:0", English, "Crop insurance scheme", true},
		{"contextual:agriculture:3", English, "Farmer training programs", true},
		{"contextual:agriculture:0", Marathi, "पीक विमा योजना", true},
		{"followup:contact_info:1", English, "Phone numbers", true},
		{"smart:health:0", English, "Vaccination schedule", true},
		{"smart:general:0", English, "🏛️ Gov Schemes", true},
		{"general:menu:2", English, "📞 Contact Info", true},
		{"welcome:menu:1", English, "📋 Apply for Certificate", true},
		{"contextual:agriculture:9", English, "", false},
		{"contextual:transport:0", English, "", false},
		{"quick_agriculture_0", English, "", false},
		{"general:menu:-1", English, "", false},
		{"general:menu:x", English, "", false},
		{"", English, "", false},
	}
	for _, tc := range cases {
		got, ok := b.Resolve(tc.id, tc.lang)
		require.Equal(t, tc.ok, ok, "id=%q", tc.id)
		require.Equal(t, tc.want, got, "id=%q", tc.id)
	}
}

func TestResolve_RoundTripsBuiltOptions(t *testing.T) {
	b := NewBuilder(nil, nil)
	set := b.Build(Decision{Strategy: model.StrategyContextual, Category: category.Health}, Input{}, English)
	for i, o := range set.Options {
		label, ok := b.Resolve(o.ID, English)
		require.True(t, ok)
		require.Equal(t, b.catalog.Questions(category.Health, English)[i], label)
	}
}

func TestInteractive(t *testing.T) {
	b := NewBuilder(nil, nil)
	set := b.General(English)

	in := Interactive(set)
	require.Equal(t, gateway.InteractiveButton, in.Type)
	require.Equal(t, set.PromptText, in.Body.Text)
	require.Len(t, in.Action.Buttons, 3)
	require.Equal(t, "reply", in.Action.Buttons[0].Type)
	require.Equal(t, set.Options[0].ID, in.Action.Buttons[0].Reply.ID)
	require.NoError(t, gateway.ValidateInteractive(in))
}

func TestDetectLanguage(t *testing.T) {
	require.Equal(t, English, DetectLanguage("school admission"))
	require.Equal(t, Marathi, DetectLanguage("शाळा admission"))
	require.Equal(t, English, DetectLanguage(""))
}
