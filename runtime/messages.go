package runtime

import (
	"fmt"
	"standupbot/domain/standup"
)

const (
	msgWelcome          = `Welcome to standup! Type "start" to get started.`
	msgAlreadyCompleted = "Today's standup is already completed."
	msgStarted          = "Standup has started."
	msgQuit             = "Quitting standup"
	msgResumed          = "I'm back! Picking up today's standup where we left off."
	msgFarewell         = "Standup bot is going offline. Today's standup has been saved and will resume when I'm back."
	msgOffline          = "Standup bot is going offline."
	msgConcluded        = "That concludes our standup."
)

const helpText = "Standup-bot commands.\n" +
	" * start                 Begin standup\n" +
	" * yes                   Begin your standup\n" +
	" * skip                  Skip your standup until the end of standup\n" +
	" * vacation: @user       Excuse a member on vacation for the day (admin)\n" +
	" * skip: @user           Skip a member's standup for the day (admin)\n" +
	" * quit-standup          Quit standup\n" +
	" * help                  Show this message"

func greeting(id standup.MemberID) string {
	return fmt.Sprintf("Goodmorning %s, Welcome to daily standup! Are you ready to begin? ('yes', or 'skip')", id.Mention())
}

func askQuestion(id standup.MemberID, index int, question string) string {
	return fmt.Sprintf("%s %d. %s", id.Mention(), index+1, question)
}

func alreadySubmitted(id standup.MemberID) string {
	return fmt.Sprintf("You have already submitted a standup for today, thanks! %s", id.Mention())
}

func memberDone(id standup.MemberID) string {
	return fmt.Sprintf("Thanks %s, you're all done for today!", id.Mention())
}

func movedToEnd(id standup.MemberID) string {
	return fmt.Sprintf("%s will go last.", id.Mention())
}

func notAllowed(id standup.MemberID) string {
	return fmt.Sprintf("Sorry %s, only an admin or whoever started the standup can do that.", id.Mention())
}

func unknownMember(id standup.MemberID) string {
	return fmt.Sprintf("Sorry %s, I don't know who you are. Please make sure you are a member of this channel.", id.Mention())
}

func excused(id standup.MemberID, reason standup.ExcuseReason) string {
	if reason == standup.ExcusedVacation {
		return fmt.Sprintf("%s is on vacation today.", id.Mention())
	}
	return fmt.Sprintf("%s has been skipped for today.", id.Mention())
}

func completion(recapURL string) string {
	if recapURL == "" {
		return msgConcluded + " Thanks everyone!"
	}
	return fmt.Sprintf("%s For a recap visit %s", msgConcluded, recapURL)
}
