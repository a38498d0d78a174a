package notify

import (
	"fmt"

	"github.com/mmynk/payup/internal/models"
)

func payUpMessage(holder, receiver *models.User, amount, payLink string) (subject, body string) {
	subject = fmt.Sprintf("You still owe %s %s", receiver.Name, amount)
	body = fmt.Sprintf(`Hi %s,

you still owe %s %s.

Pay now: %s

PayUp`, holder.Name, receiver.Name, amount, payLink)
	return subject, body
}

func promptMessage(holder, receiver *models.User, amount, yesLink, noLink string) (subject, body string) {
	subject = fmt.Sprintf("Did you pay %s %s?", receiver.Name, amount)
	body = fmt.Sprintf(`Hi %s,

you recently opened a link to pay %s %s. Did the payment go through?

Yes, I paid: %s
No, not yet: %s

PayUp`, holder.Name, receiver.Name, amount, yesLink, noLink)
	return subject, body
}
