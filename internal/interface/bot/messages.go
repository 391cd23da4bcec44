package bot

import (
	"strconv"

	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

// Callback data of the "I've Joined" button.
const callbackGateRecheck = "force_sub_verify"

const (
	textWelcome = "🔓 Save Restricted Content Bot\n" +
		"I can bypass forwarding restrictions!\n\n" +
		"📌 Features:\n" +
		"- Forward restricted content to channels\n" +
		"- Get content in your personal messages\n" +
		"- Batch save multiple media\n\n" +
		"⚙️ Setup Instructions:\n" +
		"1. Use /setdestination to configure target\n" +
		"2. Forward restricted content to me\n\n" +
		"💎 Use /premium for exclusive features"

	textPremium = "🌟 Save Restricted Content Bot Premium Features\n\n" +
		"💎 Ad-Free Experience\n" +
		"🚫 No verification required\n" +
		"⚡ Priority processing\n" +
		"📦 Increased batch save limits\n\n" +
		"Contact the bot owner for premium access!"

	textBatchSave = "📦 Batch save activated. Send multiple media to Save Restricted Content Bot now..."
	textCancel    = "❌ Current operation canceled in Save Restricted Content Bot"
	textLogout    = "✅ You've been logged out from Save Restricted Content Bot"

	textOwnerOnly     = "❌ Owner only command!"
	textInternalError = "⚠️ Something went wrong. Please try again later."

	textJoinPrompt   = "📢 To use Save Restricted Content Bot, please join our channels and groups:"
	textJoinedButton = "✅ I've Joined"
	textJoinThanks   = "✅ Thanks for joining! You can now use the bot."
	textJoinMissing  = "Please join all required channels and groups first!"

	textVerifyPrompt  = "⏳ Your session has expired. Please verify to continue using Save Restricted Content Bot:\n\n🔗 "
	textVerifyButton  = "🔓 Verify Now"
	textVerifyDirect  = "🔗 Direct link"
	textVerifyOK      = "✅ Verification successful! You can now use the bot."
	textVerifyInvalid = "❌ Invalid verification token"
	textVerifyUsage   = "Please provide a verification token"

	textDestUsage   = "Please specify a channel: /setdestination @channelname"
	textDestInvalid = "❌ Destination must be a channel @handle or a numeric chat id"
	textNoDest      = "❌ Please set a channel first using /setdestination"

	textRelayFailed       = "❌ Failed to forward media. Make sure I'm admin in target channel!"
	textSendToMeButton    = "📩 Send to me"
	textSentToMe          = "✅ Sent to your personal messages!"
	textStartDMFirst      = "❌ Failed to send. Please start a DM with me first!"
	textSendToMeFailed    = "❌ Failed to send. Please try again later."
	textBroadcastUsage    = "Usage: /broadcast <message>"
	textResetDone         = "✅ All data has been reset"
	textWindowUsage       = "Usage: /setverificationwindow <hours>"
	textWindowInvalid     = "❌ Hours must be a whole number of at least 1"
	textShortenerUsage    = "Usage: /setshortener <api_url> <api_key>"
	textShortenerInvalid  = "❌ The API URL must be an http(s) URL and the key must not be empty.\n" + textShortenerUsage
	textShortenerTestURL  = "https://google.com"
	textAdminTokenPrivate = "❌ Use this command in a private chat with me"
	textAdminAPIDisabled  = "❌ Admin API is disabled"
)

func chatLabel(chat string) string {
	if _, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return chat
	}
	return "@" + chat
}

func textDestSet(dest string) string {
	return "✅ Channel set: " + chatLabel(dest) + "\nNow send restricted content!"
}

func textRelayed(dest string) string {
	return "✅ Media forwarded successfully to " + chatLabel(dest) + "\nWant it in your DM?"
}

func kindLabel(kind string) string {
	if kind == "group" {
		return "Group"
	}
	return "Channel"
}

func textGateUsage(cmd, kind string) string {
	return "Usage: /" + cmd + " @" + kind + "_username"
}

func textGateAdded(kind, target string) string {
	return "✅ Force-sub " + kind + " added: " + chatLabel(target)
}

func textGateExists(kind string) string {
	return "⚠️ " + kindLabel(kind) + " already in force-sub list"
}

func textGateRemoved(kind, target string) string {
	return "✅ Force-sub " + kind + " removed: " + chatLabel(target)
}

func textGateAbsent(kind string) string {
	return "⚠️ " + kindLabel(kind) + " not in force-sub list"
}

func textWindowSet(hours int) string {
	return "✅ Verification interval set to " + strconv.Itoa(hours) + " hours"
}

func textShortenerSet(short string) string {
	return "✅ Shortener API configured successfully!\nTest URL: " + textShortenerTestURL + "\nShort URL: " + short
}

func textBroadcastDone(rep application.BroadcastReport) string {
	var s string
	if rep.Queued > 0 {
		s = "✅ Broadcast queued for " + strconv.Itoa(rep.Queued) + " users"
	} else {
		s = "✅ Broadcast sent to " + strconv.Itoa(rep.Delivered) + " users"
	}
	if rep.Failed > 0 {
		s += " (" + strconv.Itoa(rep.Failed) + " failed)"
	}
	if rep.Skipped > 0 {
		s += "\n⚠️ Stopped early, " + strconv.Itoa(rep.Skipped) + " users not reached"
	}
	return s
}

func joinKeyboard(actions []application.JoinAction) [][]gateway.Button {
	rows := make([][]gateway.Button, 0, len(actions)+1)
	for _, a := range actions {
		rows = append(rows, []gateway.Button{{Text: a.Label, URL: a.URL}})
	}
	return append(rows, []gateway.Button{{Text: textJoinedButton, Data: callbackGateRecheck}})
}

func verifyKeyboard(link application.VerificationLink) [][]gateway.Button {
	rows := [][]gateway.Button{{{Text: textVerifyButton, URL: link.URL}}}
	if link.URL != link.DeepLink {
		rows = append(rows, []gateway.Button{{Text: textVerifyDirect, URL: link.DeepLink}})
	}
	return rows
}
