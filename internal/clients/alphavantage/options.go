package alphavantage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

// optionRecord covers both upstream record versions: the realtime feed
// (contractID, strike, last) and the older flattened shape
// (contract_name, strike_price, last_price).
type optionRecord struct {
	ContractID string      `json:"contractID"`
	Type       string      `json:"type"`
	Expiration string      `json:"expiration"`
	Strike     flexFloat64 `json:"strike"`
	Last       flexFloat64 `json:"last"`

	ContractName   string      `json:"contract_name"`
	ContractType   string      `json:"contract_type"`
	ExpirationDate string      `json:"expiration_date"`
	StrikePrice    flexFloat64 `json:"strike_price"`
	LastPrice      flexFloat64 `json:"last_price"`

	Bid               flexFloat64 `json:"bid"`
	Ask               flexFloat64 `json:"ask"`
	Change            flexFloat64 `json:"change"`
	ChangePercentage  flexFloat64 `json:"change_percentage"`
	Volume            flexFloat64 `json:"volume"`
	OpenInterest      flexFloat64 `json:"open_interest"`
	ImpliedVolatility flexFloat64 `json:"implied_volatility"`
	Delta             flexFloat64 `json:"delta"`
	Gamma             flexFloat64 `json:"gamma"`
	Theta             flexFloat64 `json:"theta"`
	Vega              flexFloat64 `json:"vega"`
	Rho               flexFloat64 `json:"rho"`
}

type optionsResponse struct {
	Data    []optionRecord `json:"data"`
	Options []optionRecord `json:"options"`
}

// mapRealtimeOption maps the realtime feed record
func mapRealtimeOption(r optionRecord) models.OptionsContract {
	return models.OptionsContract{
		ContractName:   r.ContractID,
		ContractType:   r.Type,
		ExpirationDate: r.Expiration,
		StrikePrice:    r.Strike.value,
		LastPrice:      r.Last.value,
	}
}

// mapLegacyOption maps the flattened record shape
func mapLegacyOption(r optionRecord) models.OptionsContract {
	return models.OptionsContract{
		ContractName:   r.ContractName,
		ContractType:   r.ContractType,
		ExpirationDate: r.ExpirationDate,
		StrikePrice:    r.StrikePrice.value,
		LastPrice:      r.LastPrice.value,
	}
}

// toContract selects the mapper for the record version and fills the
// shared fields. Greeks are attached only when requested and the record
// carries a parseable implied volatility.
func (r optionRecord) toContract(includeGreeks bool) models.OptionsContract {
	var oc models.OptionsContract
	if r.ContractID != "" {
		oc = mapRealtimeOption(r)
	} else {
		oc = mapLegacyOption(r)
	}

	oc.Bid = r.Bid.value
	oc.Ask = r.Ask.value
	oc.Change = r.Change.value
	oc.ChangePercentage = r.ChangePercentage.value
	oc.Volume = int64(r.Volume.value)
	oc.OpenInterest = int64(r.OpenInterest.value)

	if includeGreeks && r.ImpliedVolatility.valid {
		oc.ImpliedVolatility = r.ImpliedVolatility.ptr()
		oc.Delta = r.Delta.ptr()
		oc.Gamma = r.Gamma.ptr()
		oc.Theta = r.Theta.ptr()
		oc.Vega = r.Vega.ptr()
		oc.Rho = r.Rho.ptr()
	}
	return oc
}

// GetOptionsChain retrieves the realtime options chain
func (c *Client) GetOptionsChain(ctx context.Context, symbol string, includeGreeks bool) ([]models.OptionsContract, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", common.ErrInvalidParameter)
	}

	params := url.Values{}
	params.Set("function", "REALTIME_OPTIONS")
	params.Set("symbol", symbol)
	params.Set("entitlement", "realtime")
	if includeGreeks {
		params.Set("require_greeks", "true")
	}

	var resp optionsResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	records := resp.Data
	if len(records) == 0 {
		records = resp.Options
	}
	if len(records) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No options data returned")
	}

	contracts := make([]models.OptionsContract, 0, len(records))
	for _, r := range records {
		contracts = append(contracts, r.toContract(includeGreeks))
	}
	return contracts, nil
}
