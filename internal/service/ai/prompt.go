package ai

import (
	"fmt"
	"strings"

	"github.com/tabletopforge/npc-dialogue/internal/model/npc"
	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
)

// systemTemplate mirrors the npc-config prompt layout: profile placeholders
// first, shared format instructions appended after.
const systemTemplate = `You are {name}, an NPC in a tabletop role-playing session.

Description: {description}
Personality: {personality}
Current scene: {currentScene}

What you know:
{whatTheyKnow}

Things you must not reveal or do:
{pitfalls}

Your motivations (things that would genuinely win you over):
{motivations}`

// formatInstructions is appended to every system prompt. The marker line is
// the side channel the trigger engine consumes.
const formatInstructions = `Stay in character at all times. Answer in short, spoken dialogue without narration.

Your current disposition toward the party is "{attitude}" with patience {patience}/5 and interest {interest}/5. Let low patience shorten your answers and high interest make you more forthcoming.

If, and only if, the player's last message genuinely appeals to one of your motivations, begin your reply with the exact tag <applied to motivation: LABEL> where LABEL is the motivation as written above, then continue the reply after the tag. Never invent motivations and never repeat the tag for small talk.`

// BuildSystemPrompt renders the system prompt for one turn from the profile
// and the committed session state.
func BuildSystemPrompt(profile npc.Profile, sess sessionmodel.Session) string {
	prompt := strings.NewReplacer(
		"{name}", profile.Name,
		"{description}", profile.Description,
		"{personality}", profile.Personality,
		"{currentScene}", profile.CurrentScene,
		"{whatTheyKnow}", bulletList(profile.WhatTheyKnow),
		"{pitfalls}", bulletList(profile.Pitfalls),
		"{motivations}", bulletList(profile.Motivations),
	).Replace(systemTemplate)

	instructions := strings.NewReplacer(
		"{attitude}", string(sess.Attitude),
		"{patience}", fmt.Sprintf("%d", sess.Patience),
		"{interest}", fmt.Sprintf("%d", sess.Interest),
	).Replace(formatInstructions)

	return prompt + "\n\n" + instructions
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}
