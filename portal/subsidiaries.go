// Package portal describes the offenevergaben.at tendering portal: the
// enumerated ÖBB subsidiaries whose procurement listings are crawled and
// the shape of their listing-page URLs. Subsidiaries are configuration
// data; adding or removing one is a table edit, not a code change.
package portal

import "fmt"

// BaseURL is the portal root. Listing pages live under
// <BaseURL>/auftraggeber/<buyer id>?page=<n>.
const BaseURL = "https://offenevergaben.at"

// Subsidiary is one business unit whose listing is crawled independently.
type Subsidiary struct {
	// Key is the stable identifier used in output and logs.
	Key string

	// Name is the display name as registered on the portal.
	Name string

	// BuyerID is the portal's numeric contracting-authority ID.
	BuyerID string
}

// PageURL returns the listing URL for the given 1-based page index.
func (s Subsidiary) PageURL(page int) string {
	return fmt.Sprintf("%s/auftraggeber/%s?page=%d", BaseURL, s.BuyerID, page)
}

// Subsidiaries is the full ÖBB group as registered on the portal. Several
// units appear more than once because the portal assigned them multiple
// contracting-authority IDs over time; they are crawled separately and
// collapse through record-level dedup.
var Subsidiaries = []Subsidiary{
	{Key: "obb_business", Name: "ÖBB-Business Competence Center", BuyerID: "8550"},
	{Key: "obb_infrastruktur", Name: "ÖBB-Infrastruktur AG", BuyerID: "8538"},
	{Key: "obb_technische_services", Name: "ÖBB-Technische Services Gesellschaft", BuyerID: "11068"},
	{Key: "obb_holding_all", Name: "ÖBB Holding AG mit allen verbundenen Unternehmen", BuyerID: "11074"},
	{Key: "obb_personenverkehr", Name: "ÖBB-Personenverkehr AG", BuyerID: "8547"},
	{Key: "obb_produktion", Name: "ÖBB-Produktion", BuyerID: "8545"},
	{Key: "obb_postbus", Name: "ÖBB-Postbus", BuyerID: "8581"},
	{Key: "obb_holding", Name: "ÖBB-Holding AG", BuyerID: "11217"},
	{Key: "obb_immobilienmanagement", Name: "ÖBB-Immobilienmanagement", BuyerID: "11090"},
	{Key: "obb_werbung", Name: "ÖBB-Werbung", BuyerID: "11224"},
	{Key: "obb_rail_tours", Name: "ÖBB Rail Tours Austria", BuyerID: "11446"},
	{Key: "obb_infrastruktur_ag", Name: "ÖBB-Infrastruktur Aktiengesellschaft", BuyerID: "28842"},
	{Key: "obb_infrastruktur_gb_projekt", Name: "ÖBB-Infrastruktur AG GB Projekt", BuyerID: "24814"},
	{Key: "obb_infrastruktur_2", Name: "ÖBB Infrastruktur AG (2)", BuyerID: "36280"},
	{Key: "obb_personenverkehr_2", Name: "ÖBB Personenverkehr AG (2)", BuyerID: "19826"},
	{Key: "obb_immobilienmanagement_2", Name: "ÖBB-Immobilienmanagement (2)", BuyerID: "33422"},
	{Key: "obb_technische_services_2", Name: "ÖBB-Technische Services-Gesellschaft (2)", BuyerID: "37657"},
	{Key: "obb_personenverkehr_3", Name: "ÖBB-Personenverkehr AG (3)", BuyerID: "24566"},
	{Key: "obb_personenverkehr_4", Name: "ÖBB Personenverkehr AG (4)", BuyerID: "29519"},
	{Key: "obb_personenverkehr_5", Name: "ÖBB Personenverkehr AG (5)", BuyerID: "28047"},
	{Key: "obb_business_2", Name: "ÖBB-Business Competence Center (2)", BuyerID: "37203"},
	{Key: "obb_business_3", Name: "ÖBB-Business Competence Center (3)", BuyerID: "37202"},
}

// ByKey looks up a subsidiary by its identifier.
func ByKey(key string) (Subsidiary, bool) {
	for _, s := range Subsidiaries {
		if s.Key == key {
			return s, true
		}
	}
	return Subsidiary{}, false
}
