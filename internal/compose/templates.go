package compose

import (
	"fmt"
	"strings"

	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
)

// template picks a canned reply for the leading action. It is the
// provider-down path, so every action tag resolves to something.
func template(lang string, actions []dispatch.Action, name string) string {
	en := strings.HasPrefix(strings.ToLower(lang), "en")

	if len(actions) == 0 {
		return apology(en)
	}

	a := actions[0]
	switch a.Type {
	case dispatch.ActionGreeting:
		if en {
			return greet("Hello", name) + " Welcome to our shop. How can I help you today?"
		}
		return greet("Bonjour", name) + " Bienvenue dans notre boutique. Comment puis-je vous aider ?"
	case dispatch.ActionShowProducts, dispatch.ActionRecommendations:
		if en {
			return fmt.Sprintf("Here are %d products that may interest you.", len(a.Products))
		}
		return fmt.Sprintf("Voici %d produits qui pourraient vous intéresser.", len(a.Products))
	case dispatch.ActionShowProduct:
		if a.Product != nil {
			if en {
				return fmt.Sprintf("%s costs %d %s.", a.Product.Name, a.Product.PriceCents/100, a.Product.Currency)
			}
			return fmt.Sprintf("Le produit %s coûte %d %s.", a.Product.Name, a.Product.PriceCents/100, a.Product.Currency)
		}
	case dispatch.ActionNoResults:
		if en {
			return "I could not find anything matching your request. Want to try something else?"
		}
		return "Je n'ai rien trouvé qui corresponde à votre demande. Voulez-vous essayer autre chose ?"
	case dispatch.ActionOrderCreated:
		if a.Order != nil {
			if en {
				return fmt.Sprintf("Your order %s has been created. You can pay whenever you are ready.", a.Order.ID)
			}
			return fmt.Sprintf("Votre commande %s a bien été créée. Vous pouvez payer quand vous le souhaitez.", a.Order.ID)
		}
	case dispatch.ActionCartUpdated, dispatch.ActionOrderSummary:
		if en {
			return "Your cart has been updated."
		}
		return "Votre panier a été mis à jour."
	case dispatch.ActionOrderStatus:
		if a.Order != nil {
			if en {
				return fmt.Sprintf("Order %s is currently %s.", a.Order.ID, a.Order.Status)
			}
			return fmt.Sprintf("Votre commande %s est actuellement %s.", a.Order.ID, a.Order.Status)
		}
	case dispatch.ActionOrderCancelled:
		if en {
			return "Your order has been cancelled."
		}
		return "Votre commande a bien été annulée."
	case dispatch.ActionOrderNotFound:
		if en {
			return "I could not find that order. Could you check the order number?"
		}
		return "Je ne retrouve pas cette commande. Pouvez-vous vérifier le numéro ?"
	case dispatch.ActionShowPaymentMethods:
		if en {
			return "How would you like to pay?"
		}
		return "Comment souhaitez-vous régler votre commande ?"
	case dispatch.ActionPaymentInitiated:
		if en {
			return "Your payment has been initiated. You will receive a confirmation shortly."
		}
		return "Votre paiement a été initié. Vous recevrez une confirmation sous peu."
	case dispatch.ActionTicketCreated:
		if a.Ticket != nil {
			if en {
				return fmt.Sprintf("I opened ticket %s for you. Our team will get back to you soon.", a.Ticket.ID)
			}
			return fmt.Sprintf("J'ai ouvert le ticket %s pour vous. Notre équipe revient vers vous rapidement.", a.Ticket.ID)
		}
	case dispatch.ActionError:
		return apology(en)
	}

	if en {
		return "I'm not sure I understood. Could you rephrase?"
	}
	return "Je ne suis pas sûr d'avoir compris. Pouvez-vous reformuler ?"
}

// Apology is the localized last-resort reply used when a turn fails
// entirely.
func Apology(lang string) string {
	return apology(strings.HasPrefix(strings.ToLower(lang), "en"))
}

func apology(en bool) string {
	if en {
		return "Sorry, something went wrong on our side. Please try again in a moment."
	}
	return "Désolé, une erreur est survenue de notre côté. Merci de réessayer dans un instant."
}

func greet(word, name string) string {
	if name == "" {
		return word + " !"
	}
	return word + " " + name + " !"
}

// Quick-reply ids recognized by the deterministic intent path.
const (
	suggestionProduct = "suggestion_product"
	suggestionOrder   = "suggestion_order"
	suggestionSupport = "suggestion_support"
	suggestionPayment = "suggestion_payment"
)

// SuggestedReplies returns up to 3 quick replies tuned to the action
// set, in the customer's language.
func SuggestedReplies(lang string, actions []dispatch.Action) []dispatch.Suggestion {
	en := strings.HasPrefix(strings.ToLower(lang), "en")

	pick := func(id, enLabel, frLabel string) dispatch.Suggestion {
		if en {
			return dispatch.Suggestion{ID: id, Label: enLabel}
		}
		return dispatch.Suggestion{ID: id, Label: frLabel}
	}

	browse := pick(suggestionProduct, "Browse products", "Voir les produits")
	track := pick(suggestionOrder, "Track my order", "Suivre ma commande")
	support := pick(suggestionSupport, "Talk to support", "Contacter le support")
	pay := pick(suggestionPayment, "Pay now", "Payer maintenant")
	shop := pick(suggestionProduct, "Keep shopping", "Continuer mes achats")

	switch {
	case dispatch.HasType(actions, dispatch.ActionSuggestions),
		dispatch.HasType(actions, dispatch.ActionFallback),
		dispatch.HasType(actions, dispatch.ActionAskClarification):
		return []dispatch.Suggestion{browse, track, support}
	case dispatch.HasType(actions, dispatch.ActionNoResults):
		return []dispatch.Suggestion{browse, support}
	case dispatch.HasType(actions, dispatch.ActionOrderCreated),
		dispatch.HasType(actions, dispatch.ActionOrderSummary):
		return []dispatch.Suggestion{pay, shop}
	case dispatch.HasType(actions, dispatch.ActionPaymentInitiated):
		return []dispatch.Suggestion{track}
	default:
		return nil
	}
}
