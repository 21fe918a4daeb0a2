package models

// PayPal wire types, reduced to the fields the checkout reads.

type PaypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PaypalPurchaseUnit struct {
	Amount PaypalAmount `json:"amount"`
}

type PaypalCreateOrderBody struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []PaypalPurchaseUnit `json:"purchase_units"`
}

type PaypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type PaypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

const PaypalStatusCompleted = "COMPLETED"

// NETS wire types.

const (
	NetsResponseSuccess  = "00"
	NetsTxnStatusSuccess = 1
	NetsTxnStatusFailed  = 2
)

type NetsQRRequestBody struct {
	TxnID         string `json:"txn_id"`
	AmountDollars string `json:"amt_in_dollars"`
	NotifyMobile  int    `json:"notify_mobile"`
}

type NetsQRData struct {
	ResponseCode    string `json:"response_code"`
	TxnStatus       int    `json:"txn_status"`
	QRCode          string `json:"qr_code"`
	TxnRetrievalRef string `json:"txn_retrieval_ref"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

type NetsQRResponse struct {
	Result struct {
		Data NetsQRData `json:"data"`
	} `json:"result"`
}

type NetsQueryBody struct {
	TxnRetrievalRef       string `json:"txn_retrieval_ref"`
	FrontendTimeoutStatus int    `json:"frontend_timeout_status"`
}

type NetsStatus struct {
	ResponseCode string `json:"response_code"`
	TxnStatus    int    `json:"txn_status"`
}

type NetsQueryResponse struct {
	Result struct {
		Data NetsStatus `json:"data"`
	} `json:"result"`
}

// Succeeded reports the "00" + status 1 combination.
func (s NetsStatus) Succeeded() bool {
	return s.ResponseCode == NetsResponseSuccess && s.TxnStatus == NetsTxnStatusSuccess
}
