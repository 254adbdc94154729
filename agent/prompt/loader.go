package prompt

import (
	"embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

//go:embed template/*.txt
var templates embed.FS

const DefaultLanguage = "zh"

const (
	ContactEmail     = "contactus@laien.io"
	SupportEmail     = "support@appname.com"
	TechSupportEmail = "tech_support@appname.com"
)

// Reply templates the specialists answer with. Tests and prompts share them.
const (
	ReplySubscriptionStatus = "Here，tap this link to check your subscription status: itms-apps://apps.apple.com/account/subscription"
	ReplyCancel             = "No worries if you want to cancel — just go to your iTunes account settings and switch off auto-renew. Need help? Click here for the full steps: https://support.apple.com/HT202039"
	ReplyRefund             = "Hi there! Thanks for reaching out. Just a heads-up: Apple manages all the billing for in-app purchases on iOS devices, and they don't let us handle refunds. So, if you want to request a refund, you'll need to get in touch with them directly. You can do that by visiting https://getsupport.apple.com. Usually, you can get a refund for subscriptions within 30 days of purchase, but it's up to them to decide. Hope this helps!"
	ReplyPurchase           = "Click here to get it sorted out."
	ReplyRestore            = "Click here to get it sorted out."
	ReplyTroubleshooting    = "Don't worry. Get in touch— Click here to get help."

	// ReplyClarification is used when the router produced no text at all.
	ReplyClarification  = "Could you tell me a bit more about what you need help with? For example your workout plan, your subscription, or a problem with the app."
	ReplyContactSupport = "Sorry, I can't help with that here. Please email " + SupportEmail + " and our team will get back to you."
)

var promptFiles = map[contractx.AgentName]string{
	contractx.AgentRouter:          "router.txt",
	contractx.AgentHealthAdvice:    "health.txt",
	contractx.AgentSubscription:    "subscription.txt",
	contractx.AgentTroubleshooting: "troubleshooting.txt",
	contractx.AgentProfile:         "profile.txt",
}

// For returns the system prompt template of a responder with the shared output
// rules appended. The result still contains template actions; see Vars.
func For(agent contractx.AgentName) (string, error) {
	file, ok := promptFiles[agent]
	if !ok {
		return "", fmt.Errorf("%w: no prompt for %s", contractx.ErrPromptMissing, agent)
	}
	body, err := read(file)
	if err != nil {
		return "", err
	}
	shared, err := read("shared.txt")
	if err != nil {
		return "", err
	}
	return body + "\n\n" + shared, nil
}

// Vars are the template values every prompt may reference.
func Vars(language string) map[string]any {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	return map[string]any{
		"language":              language,
		"contact_email":         ContactEmail,
		"support_email":         SupportEmail,
		"tech_support_email":    TechSupportEmail,
		"reply_status":          ReplySubscriptionStatus,
		"reply_cancel":          ReplyCancel,
		"reply_refund":          ReplyRefund,
		"reply_purchase":        ReplyPurchase,
		"reply_restore":         ReplyRestore,
		"reply_troubleshooting": ReplyTroubleshooting,
	}
}

func read(file string) (string, error) {
	raw, err := templates.ReadFile("template/" + file)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", contractx.ErrPromptMissing, file, err)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return "", fmt.Errorf("%w: %s is empty", contractx.ErrPromptMissing, file)
	}
	return content, nil
}
