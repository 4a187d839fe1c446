// Package policy implements the cache-backed explanation/policy-answer
// layer: a keyword-matched knowledge base of cancellation, baggage,
// change, refund, and car-rental templates resolved through a fixed
// keyword cascade.
package policy

import "strings"

var generalPolicies = map[string]map[string]string{
	"cancellation": {
		"flights": "Most airlines allow free cancellation within 24 hours of booking. Basic Economy tickets are typically non-refundable; refundable tickets can be canceled anytime for a full refund; non-refundable tickets may offer a travel credit with change fees.",
		"hotels":  "Standard hotel rates allow free cancellation up to 24-48 hours before check-in. Non-refundable rates cannot be canceled or changed. Luxury hotels often require 72 hours or more notice.",
		"cars":    "Most rentals allow free cancellation up to 24-48 hours before pickup. Prepaid rates may be non-refundable or carry cancellation fees.",
	},
	"baggage": {
		"carry_on": "Carry-on size limit is typically 22\"x14\"x9\" plus one personal item. Liquids must be in 3.4oz containers within a single quart bag. Basic Economy may not include overhead bin access.",
		"checked":  "Standard checked baggage is 1-2 bags included on international flights; domestic flights often charge $30-35 for the first bag. Weight limit is usually 50 lbs (23 kg) for standard fares.",
	},
	"changes": {
		"flights": "Same-day changes usually cost $75-100; advance changes run $200-300 domestic, $400+ international. Fare differences always apply. Premium tickets often have no change fees.",
		"hotels":  "Date changes are usually allowed subject to availability; room-type changes are subject to availability and rate differences.",
	},
	"refunds": {
		"process": "Refundable tickets take 7-20 business days to the original payment method. Credits are issued immediately and are typically valid for 1 year. Hotel refunds typically take 5-10 business days.",
	},
}

var commonQuestions = map[string]string{
	"baggage_fees":         "Baggage fees vary by airline. Southwest allows 2 free checked bags. Most other airlines charge $30-35 for the first bag, $40-45 for the second. Budget airlines charge for both carry-on and checked bags.",
	"24_hour_rule":         "US regulations require airlines to allow free cancellation within 24 hours of booking if the flight is at least 7 days away, including non-refundable fares.",
	"change_fees":          "Most major airlines have eliminated change fees for domestic flights; you only pay the fare difference. Basic Economy tickets are usually non-changeable.",
	"tsa_precheck":         "TSA PreCheck costs $78 for 5 years and gives access to faster security lanes. CLEAR is faster but more expensive.",
	"hotel_early_checkin":  "Early check-in is subject to room availability. Luxury hotels may charge a fee; mid-range hotels often accommodate for free if rooms are ready.",
	"hotel_late_checkout":  "Late checkout is subject to availability. Some hotels offer it free to loyalty members; others charge a fee or a percentage of the nightly rate.",
	"rental_car_insurance": "Your auto insurance and credit card may already cover rental cars — check before purchasing the rental company's collision or liability coverage.",
	"refund_timeline":      "Refunds take 7-20 business days to process to the original payment method. Travel credits are issued immediately and typically valid for 1 year.",
}

var carRentalPolicies = map[string]string{
	"age_requirements": "Standard minimum rental age is 25; drivers 21-24 usually pay an additional young-driver fee; under 21 is not permitted for most rentals.",
	"fuel_policy":      "Full-to-full (return with the same fuel level) is the most economical option. Prepaid fuel and fuel-service return are usually more expensive.",
}

// Answer matches a free-text question against the policy knowledge
// base via a fixed keyword cascade.
// Returns ok=false when nothing matches, signaling a 404 at the HTTP
// boundary for an unanswerable policy question.
func Answer(question string) (string, []string, bool) {
	q := strings.ToLower(question)

	switch {
	case containsAny(q, "baggage", "bag", "luggage", "carry", "checked"):
		switch {
		case containsAny(q, "fee", "cost", "how much"):
			return commonQuestions["baggage_fees"], []string{"baggage_fees"}, true
		case strings.Contains(q, "carry"):
			return generalPolicies["baggage"]["carry_on"], []string{"baggage.carry_on"}, true
		default:
			return generalPolicies["baggage"]["checked"], []string{"baggage.checked"}, true
		}

	case containsAny(q, "cancel", "cancellation"):
		switch {
		case containsAny(q, "flight", "airline"):
			return generalPolicies["cancellation"]["flights"], []string{"cancellation.flights"}, true
		case strings.Contains(q, "hotel"):
			return generalPolicies["cancellation"]["hotels"], []string{"cancellation.hotels"}, true
		case containsAny(q, "car", "rental"):
			return generalPolicies["cancellation"]["cars"], []string{"cancellation.cars"}, true
		default:
			return generalPolicies["cancellation"]["flights"], []string{"cancellation.flights"}, true
		}

	case containsAny(q, "change", "modify", "modification"):
		switch {
		case strings.Contains(q, "fee"):
			return commonQuestions["change_fees"], []string{"change_fees"}, true
		case strings.Contains(q, "hotel"):
			return generalPolicies["changes"]["hotels"], []string{"changes.hotels"}, true
		default:
			return generalPolicies["changes"]["flights"], []string{"changes.flights"}, true
		}

	case containsAny(q, "refund", "money back"):
		return generalPolicies["refunds"]["process"], []string{"refunds.process"}, true

	case strings.Contains(q, "24") && containsAny(q, "hour", "cancel", "free"):
		return commonQuestions["24_hour_rule"], []string{"24_hour_rule"}, true

	case strings.Contains(q, "check") && strings.Contains(q, "early"):
		return commonQuestions["hotel_early_checkin"], []string{"hotel_early_checkin"}, true

	case strings.Contains(q, "check") && strings.Contains(q, "late"):
		return commonQuestions["hotel_late_checkout"], []string{"hotel_late_checkout"}, true

	case strings.Contains(q, "insurance") && strings.Contains(q, "car"):
		return commonQuestions["rental_car_insurance"], []string{"rental_car_insurance"}, true

	case strings.Contains(q, "age") && containsAny(q, "car", "rental"):
		return carRentalPolicies["age_requirements"], []string{"car.age_requirements"}, true

	case containsAny(q, "fuel", "gas"):
		return carRentalPolicies["fuel_policy"], []string{"car.fuel_policy"}, true

	case containsAny(q, "tsa", "precheck", "clear"):
		return commonQuestions["tsa_precheck"], []string{"tsa_precheck"}, true

	default:
		return "", nil, false
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
