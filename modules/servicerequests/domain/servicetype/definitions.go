package servicetype

import "github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"

const (
	ruleYear     = "number,len=4"
	ruleQuarter  = "oneof=Q1 Q2 Q3 Q4"
	rulePlanType = "oneof=weekly fortnightly monthly"
	ruleAmount   = "gt=0"
)

var definitions = []Definition{
	{
		Type:       ABNRegistration,
		Group:      GroupRegistration,
		Title:      "ABN Registration",
		Collection: "abnRegistrations",
		Fields: []Field{
			{Name: "businessName", Label: "Business name", Kind: KindText},
			{Name: "businessStructure", Label: "Business structure", Kind: KindText},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Apply for ABN",
			PendingText:   "Update ABN Application",
			RejectedText:  "Resubmit ABN Application",
			CompletedText: "ABN Application Submitted",
		},
	},
	{
		Type:       GSTRegistration,
		Group:      GroupRegistration,
		Title:      "GST Registration",
		Collection: "gstRegistrations",
		Fields: []Field{
			{Name: "abn", Label: "ABN", Kind: KindText},
			{Name: "estimatedTurnover", Label: "Estimated turnover", Kind: KindText},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Register for GST",
			PendingText:   "Update GST Registration",
			RejectedText:  "Resubmit GST Registration",
			CompletedText: "GST Registration Submitted",
		},
	},
	{
		Type:       TFNRegistration,
		Group:      GroupRegistration,
		Title:      "TFN Registration",
		Collection: "tfnRegistrations",
		Fields: []Field{
			{Name: "fullName", Label: "Full name", Kind: KindText},
			{Name: "dateOfBirth", Label: "Date of birth", Kind: KindText},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Apply for TFN",
			PendingText:   "Update TFN Application",
			RejectedText:  "Resubmit TFN Application",
			CompletedText: "TFN Application Submitted",
		},
	},
	{
		Type:       BusinessNameRegistration,
		Group:      GroupRegistration,
		Title:      "Business Name Registration",
		Collection: "businessNameRegistrations",
		Fields: []Field{
			{Name: "businessName", Label: "Business name", Kind: KindText},
			{Name: "abn", Label: "ABN", Kind: KindText},
		},
		Labels: servicerequest.Labels{
			DefaultText:   "Register Business Name",
			PendingText:   "Update Business Name Registration",
			RejectedText:  "Resubmit Business Name Registration",
			CompletedText: "Business Name Registration Submitted",
		},
	},
	{
		Type:       TaxReturnCopy,
		Group:      GroupDocumentation,
		Title:      "Tax Return Copy",
		Collection: "taxReturnCopies",
		Fields: []Field{
			{Name: "year", Label: "Year", Kind: KindText, Rule: ruleYear},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Request Tax Return Copy",
			PendingText:   "Update Request",
			RejectedText:  "Resubmit Request",
			CompletedText: "Request Submitted",
		},
	},
	{
		Type:       BASLodgementCopy,
		Group:      GroupDocumentation,
		Title:      "BAS Lodgement Copy",
		Collection: "basLodgementCopies",
		Fields: []Field{
			{Name: "quarter", Label: "Quarter", Kind: KindText, Rule: ruleQuarter},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Request BAS Copy",
			PendingText:   "Update Request",
			RejectedText:  "Resubmit Request",
			CompletedText: "Request Submitted",
		},
	},
	{
		Type:       ATOPortalCopy,
		Group:      GroupDocumentation,
		Title:      "ATO Portal Copy",
		Collection: "atoPortalCopies",
		Fields: []Field{
			{Name: "period", Label: "Period", Kind: KindText},
			{Name: "details", Label: "Details", Kind: KindText},
		},
		Labels: servicerequest.Labels{
			DefaultText:   "Request Portal Copy",
			PendingText:   "Update Request",
			RejectedText:  "Resubmit Request",
			CompletedText: "Request Submitted",
		},
	},
	{
		Type:       NoticeOfAssessmentCopy,
		Group:      GroupDocumentation,
		Title:      "Notice of Assessment Copy",
		Collection: "noticeOfAssessmentCopies",
		Fields: []Field{
			{Name: "year", Label: "Year", Kind: KindText, Rule: ruleYear},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Request Notice of Assessment",
			PendingText:   "Update Request",
			RejectedText:  "Resubmit Request",
			CompletedText: "Request Submitted",
		},
	},
	{
		Type:       PaymentPlan,
		Group:      GroupManagement,
		Title:      "Payment Plan",
		Collection: "paymentPlans",
		Fields: []Field{
			{Name: "planType", Label: "Plan type", Kind: KindText, Rule: rulePlanType},
			{Name: "amount", Label: "Amount", Kind: KindNumber, Rule: ruleAmount},
		},
		Declaration: true,
		Labels: servicerequest.Labels{
			DefaultText:   "Set Up Payment Plan",
			PendingText:   "Update Payment Plan",
			RejectedText:  "Resubmit Payment Plan",
			CompletedText: "Payment Plan Submitted",
		},
	},
	{
		Type:       UpdateAddress,
		Group:      GroupManagement,
		Title:      "Address Update",
		Collection: "addressUpdates",
		Fields: []Field{
			{Name: "oldAddress", Label: "Old address", Kind: KindText},
			{Name: "newAddress", Label: "New address", Kind: KindText},
		},
		Labels: servicerequest.Labels{
			DefaultText:   "Update Address",
			PendingText:   "Edit Address Update",
			RejectedText:  "Resubmit Address Update",
			CompletedText: "Address Update Submitted",
		},
	},
}
