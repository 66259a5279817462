// services/messages.go
package services

import (
	"fmt"

	"loyalty-club-service/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// All member-facing notification text is built here, so each event type is
// formatted in exactly one place instead of per call site.

var titleCaser = cases.Title(language.English)

func rewardExpiredMessage(reward models.Reward) (subject, body string) {
	subject = "Your reward has expired"
	body = fmt.Sprintf(
		"The %s discount you opened on %s expired on %s without being used. "+
			"Your points balance was not affected.",
		reward.DiscountAmount.StringFixed(2),
		reward.CreatedAt.Format("Jan 2, 2006"),
		reward.ExpiresAt.Format("Jan 2, 2006"),
	)
	return subject, body
}

func tierChangedMessage(tier models.Tier, orders int) (subject, body string) {
	name := titleCaser.String(string(tier))
	subject = fmt.Sprintf("You've reached %s status", name)
	body = fmt.Sprintf(
		"With %d orders in the last six months you are now a %s member. "+
			"Your new earn rate and birthday bonus apply immediately.",
		orders, name,
	)
	return subject, body
}

func birthdayBonusMessage(tier models.Tier, points int64) (subject, body string) {
	subject = "Happy birthday! Your bonus points are here"
	body = fmt.Sprintf(
		"As a %s member you've received %d birthday points. "+
			"They're ready to spend for the next 30 days.",
		titleCaser.String(string(tier)), points,
	)
	return subject, body
}
