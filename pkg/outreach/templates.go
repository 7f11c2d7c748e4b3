package outreach

import "strings"

// Greeting and invitation pools. Selection is a uniform random draw with
// no per-user memory; the recipient's handle (or a generic fallback) is
// interpolated into the {username} slot, the target destination into
// {link}.
var greetTemplates = []string{
	"Hey {username} 👋, are you a Formula 1 fan?",
	"Hola {username} 😊, do you love Formula 1?",
	"Yo {username} 🙌, I'm crazy about Formula 1 too!",
	"Heyyy {username} 🚀, Formula 1 is life, right?",
	"Wassup {username} 😉, Formula 1 is the best sport ever!",
	"Heeey {username} 👋, do you follow Formula 1 races?",
	"Hey {username}! 🏎️ Big Formula 1 fan like me?",
}

var inviteTemplates = []string{
	"👉 Don't miss out! Join the F1 action here: {link}",
	"📢 Exclusive access to F1 news & gossip: {link}",
	"🔥 Love Formula 1? Tap here now ➡ {link}",
	"🏎️ Get your F1 fix here 👉 {link}",
	"🔥 Discover the fastest updates on the grid: {link}",
	"🚀 Be part of the ultimate F1 fan zone: {link}",
	"💡 Your front-row seat to F1 starts here: {link}",
}

const fallbackHandle = "there"

func renderGreet(template, username string) string {
	if username == "" {
		username = fallbackHandle
	}
	return strings.ReplaceAll(template, "{username}", username)
}

func renderInvite(template, link string) string {
	return strings.ReplaceAll(template, "{link}", link)
}
