package recouvrement

import (
	"errors"
	"fmt"
	"time"

	"immogest-backend/internal/caisse"
	"immogest-backend/internal/database"
	"immogest-backend/internal/models"
	"immogest-backend/internal/paiement"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var epsilonMontant = decimal.RequireFromString("0.01")

// Catégories de mouvements que peut produire un import de recouvrement
var categoriesImport = []models.CategorieMouvement{
	models.CategorieLoyer,
	models.CategorieDroitTerre,
}

// VersementImport - une ligne du fichier de collecte d'un agent.
// Soit elle vise un contrat existant (LocationID / SouscriptionID),
// soit elle décrit un locataire inconnu : dans ce cas le client, le
// bien et le bail sont créés à la volée et marqués du lot d'import.
type VersementImport struct {
	LocationID     *uint           `json:"location_id"`
	SouscriptionID *uint           `json:"souscription_id"`
	ClientNom      string          `json:"client_nom"`
	ClientTel      string          `json:"client_tel"`
	BienLibelle    string          `json:"bien_libelle"`
	LoyerMensuel   decimal.Decimal `json:"loyer_mensuel"`
	Montant        decimal.Decimal `json:"montant"`
	ModePaiement   string          `json:"mode_paiement"`
	Reference      string          `json:"reference"`
}

// CommandeImport - import des versements collectés par un agent sur une
// période (mois/année), pour un type d'opération donné
type CommandeImport struct {
	AgenceID      uint
	AgentID       uint
	Mois          int
	Annee         int
	TypeOperation string // "loyer" | "droit_terre"
	Versements    []VersementImport
}

type ReussiteImport struct {
	Ligne      int    `json:"ligne"`
	ContratID  uint   `json:"contrat_id"`
	PaiementID uint   `json:"paiement_id"`
	RecuNumero string `json:"recu_numero"`
}

type ErreurImport struct {
	Ligne  int    `json:"ligne"`
	Erreur string `json:"erreur"`
}

// ResultatImport - bilan d'un import. Comme pour le lot de loyers,
// l'échec d'une ligne n'annule pas les autres.
type ResultatImport struct {
	ImportID  uint             `json:"import_id"`
	Reference string           `json:"reference"`
	Reussites []ReussiteImport `json:"reussites"`
	Erreurs   []ErreurImport   `json:"erreurs"`
}

// ResultatAnnulation - périmètre d'une annulation d'import. Les mêmes
// chiffres sont retournés par la prévisualisation (ce qui serait
// supprimé) et par l'annulation (ce qui l'a été).
type ResultatAnnulation struct {
	Paiements      int64           `json:"paiements_supprimes"`
	Recus          int64           `json:"recus_supprimes"`
	Mouvements     int64           `json:"mouvements_supprimes"`
	Locations      int64           `json:"locations_supprimees"`
	Biens          int64           `json:"biens_supprimes"`
	Clients        int64           `json:"clients_supprimes"`
	TotalRembourse decimal.Decimal `json:"total_rembourse"`
}

func validerCommandeImport(cmd CommandeImport) error {
	if cmd.Mois < 1 || cmd.Mois > 12 {
		return fiber.NewError(fiber.StatusBadRequest, "Le mois doit être compris entre 1 et 12")
	}
	if cmd.Annee < 2000 || cmd.Annee > 2100 {
		return fiber.NewError(fiber.StatusBadRequest, "Année invalide")
	}
	if cmd.TypeOperation != string(models.PaiementLoyer) && cmd.TypeOperation != string(models.PaiementDroitTerre) {
		return fiber.NewError(fiber.StatusBadRequest, "Type d'opération invalide (loyer ou droit_terre)")
	}
	if len(cmd.Versements) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Aucun versement à importer")
	}
	return nil
}

// ImporterVersements enregistre les versements collectés par un agent.
// Chaque ligne est sa propre unité transactionnelle ; le lot lui-même
// est créé d'abord pour que même un import partiellement en échec soit
// annulable d'un bloc.
func ImporterVersements(db *gorm.DB, cmd CommandeImport) (*ResultatImport, error) {
	if err := validerCommandeImport(cmd); err != nil {
		return nil, err
	}

	var agent models.AgentRecouvreur
	if err := db.First(&agent, "id = ? AND agence_id = ?", cmd.AgentID, cmd.AgenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Agent recouvreur introuvable")
		}
		return nil, err
	}

	// Un seul lot par (agent, mois, année, type) : c'est la clé par
	// laquelle l'annulation retrouve le lot.
	var n int64
	if err := db.Model(&models.ImportRecouvrement{}).
		Where("agence_id = ? AND agent_id = ? AND mois = ? AND annee = ? AND type_operation = ?",
			cmd.AgenceID, cmd.AgentID, cmd.Mois, cmd.Annee, cmd.TypeOperation).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			"Un import existe déjà pour cet agent et cette période ; annulez-le avant de réimporter")
	}

	lot := models.ImportRecouvrement{
		AgenceID:      cmd.AgenceID,
		Reference:     uuid.NewString(),
		AgentID:       cmd.AgentID,
		Mois:          cmd.Mois,
		Annee:         cmd.Annee,
		TypeOperation: cmd.TypeOperation,
	}
	if err := db.Create(&lot).Error; err != nil {
		return nil, err
	}

	periode := fmt.Sprintf("%04d-%02d", cmd.Annee, cmd.Mois)
	res := ResultatImport{
		ImportID:  lot.ID,
		Reference: lot.Reference,
		Reussites: make([]ReussiteImport, 0, len(cmd.Versements)),
		Erreurs:   make([]ErreurImport, 0),
	}

	for i, v := range cmd.Versements {
		ligne := i + 1
		reussite, err := importerLigne(db, lot, v, periode)
		if err != nil {
			message := "Erreur interne"
			if fe, ok := err.(*fiber.Error); ok {
				message = fe.Message
			}
			res.Erreurs = append(res.Erreurs, ErreurImport{Ligne: ligne, Erreur: message})
			continue
		}
		reussite.Ligne = ligne
		res.Reussites = append(res.Reussites, *reussite)
	}

	return &res, nil
}

func importerLigne(db *gorm.DB, lot models.ImportRecouvrement, v VersementImport, periode string) (*ReussiteImport, error) {
	var reussite ReussiteImport
	err := caisse.DansTransaction(db, func(tx *gorm.DB) error {
		cmd := paiement.CommandePaiement{
			Montant:      v.Montant,
			DatePaiement: time.Now(),
			ModePaiement: v.ModePaiement,
			Reference:    v.Reference,
			Periode:      periode,
			AgentID:      &lot.AgentID,
			ImportID:     &lot.ID,
		}

		var r *paiement.ResultatPaiement
		var err error
		switch lot.TypeOperation {
		case string(models.PaiementDroitTerre):
			if v.SouscriptionID == nil {
				return fiber.NewError(fiber.StatusBadRequest,
					"souscription_id obligatoire pour un import de droit de terre")
			}
			// la souscription doit appartenir à l'agence du lot : sinon
			// l'encaissement et l'annulation toucheraient deux caisses
			// différentes
			var souscription models.Souscription
			if errSous := tx.First(&souscription, "id = ? AND agence_id = ?",
				*v.SouscriptionID, lot.AgenceID).Error; errSous != nil {
				if errors.Is(errSous, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Souscription introuvable")
				}
				return errSous
			}
			cmd.ContratID = souscription.ID
			r, err = paiement.PayerDroitTerreTx(tx, cmd)
		default:
			locationID, errLoc := resoudreLocation(tx, lot, v)
			if errLoc != nil {
				return errLoc
			}
			cmd.ContratID = locationID
			r, err = paiement.PayerLocationTx(tx, cmd)
		}
		if err != nil {
			return err
		}

		reussite = ReussiteImport{
			ContratID:  cmd.ContratID,
			PaiementID: r.PaiementID,
			RecuNumero: r.RecuNumero,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reussite, nil
}

// resoudreLocation retrouve le bail visé par une ligne d'import, ou le
// crée (avec son client et son bien) quand le locataire n'est pas
// encore connu. Tout ce qui est créé ici porte l'id du lot.
func resoudreLocation(tx *gorm.DB, lot models.ImportRecouvrement, v VersementImport) (uint, error) {
	if v.LocationID != nil {
		var location models.Location
		if err := tx.First(&location, "id = ? AND agence_id = ?", *v.LocationID, lot.AgenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, fiber.NewError(fiber.StatusNotFound, "Location introuvable")
			}
			return 0, err
		}
		return location.ID, nil
	}

	if v.ClientNom == "" || v.BienLibelle == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest,
			"location_id ou (client_nom, bien_libelle) obligatoire")
	}

	loyer := v.LoyerMensuel
	if loyer.IsZero() {
		loyer = v.Montant
	}

	client := models.Client{
		AgenceID:  lot.AgenceID,
		Nom:       v.ClientNom,
		Telephone: v.ClientTel,
		ImportID:  &lot.ID,
	}
	if err := tx.Create(&client).Error; err != nil {
		return 0, err
	}

	bien := models.Bien{
		AgenceID: lot.AgenceID,
		Libelle:  v.BienLibelle,
		Statut:   models.BienOccupe,
		ImportID: &lot.ID,
	}
	if err := tx.Create(&bien).Error; err != nil {
		return 0, err
	}

	location := models.Location{
		AgenceID:     lot.AgenceID,
		ClientID:     client.ID,
		BienID:       bien.ID,
		LoyerMensuel: loyer,
		Caution:      decimal.Zero,
		DebutBail:    time.Date(lot.Annee, time.Month(lot.Mois), 1, 0, 0, 0, 0, time.UTC),
		DetteTotale:  decimal.Zero,
		MontantPaye:  decimal.Zero,
		Statut:       models.LocationActive,
		ImportID:     &lot.ID,
	}
	if err := tx.Create(&location).Error; err != nil {
		return 0, err
	}
	return location.ID, nil
}

// TrouverImport retrouve un lot par sa clé fonctionnelle
func TrouverImport(db *gorm.DB, agenceID, agentID uint, mois, annee int, typeOperation string) (*models.ImportRecouvrement, error) {
	var lot models.ImportRecouvrement
	err := db.First(&lot,
		"agence_id = ? AND agent_id = ? AND mois = ? AND annee = ? AND type_operation = ?",
		agenceID, agentID, mois, annee, typeOperation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Aucun import pour cet agent et cette période")
		}
		return nil, err
	}
	return &lot, nil
}

// PreviewAnnulation calcule, sans rien modifier, le périmètre exact de
// l'annulation d'un lot : mêmes critères que AnnulerImport.
func PreviewAnnulation(db *gorm.DB, lot *models.ImportRecouvrement) (*ResultatAnnulation, error) {
	res := ResultatAnnulation{TotalRembourse: decimal.Zero}

	if err := db.Model(&models.Paiement{}).
		Where("import_id = ?", lot.ID).Count(&res.Paiements).Error; err != nil {
		return nil, err
	}

	sousPaiements := db.Model(&models.Paiement{}).Select("id").Where("import_id = ?", lot.ID)
	if err := db.Model(&models.Recu{}).
		Where("reference_id IN (?)", sousPaiements).Count(&res.Recus).Error; err != nil {
		return nil, err
	}

	sousPaiements = db.Model(&models.Paiement{}).Select("id").Where("import_id = ?", lot.ID)
	if err := db.Model(&models.MouvementCaisse{}).
		Where("lien_id IN (?) AND categorie IN ?", sousPaiements, categoriesImport).
		Count(&res.Mouvements).Error; err != nil {
		return nil, err
	}

	type ligne struct {
		Total decimal.NullDecimal
	}
	var l ligne
	sousPaiements = db.Model(&models.Paiement{}).Select("id").Where("import_id = ?", lot.ID)
	if err := db.Model(&models.MouvementCaisse{}).
		Select("SUM(CASE WHEN sens = ? THEN montant ELSE -montant END) as total", models.SensEntree).
		Where("lien_id IN (?) AND categorie IN ?", sousPaiements, categoriesImport).
		Scan(&l).Error; err != nil {
		return nil, err
	}
	if l.Total.Valid {
		res.TotalRembourse = l.Total.Decimal
	}

	if err := db.Model(&models.Location{}).
		Where("import_id = ?", lot.ID).Count(&res.Locations).Error; err != nil {
		return nil, err
	}

	// Un bien ou un client créé par l'import n'est supprimable que si
	// aucun bail hors import ne s'y est raccroché entre-temps.
	if err := db.Model(&models.Bien{}).
		Where("import_id = ?", lot.ID).
		Where("NOT EXISTS (SELECT 1 FROM locations WHERE locations.bien_id = biens.id AND (locations.import_id IS NULL OR locations.import_id <> ?))", lot.ID).
		Count(&res.Biens).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Client{}).
		Where("import_id = ?", lot.ID).
		Where("NOT EXISTS (SELECT 1 FROM locations WHERE locations.client_id = clients.id AND (locations.import_id IS NULL OR locations.import_id <> ?))", lot.ID).
		Count(&res.Clients).Error; err != nil {
		return nil, err
	}

	return &res, nil
}

// AnnulerImport défait un lot d'un seul bloc, dans une seule unité
// transactionnelle : le solde de caisse est décrémenté de l'effet net
// du lot, les reçus, mouvements et paiements sont supprimés, les
// agrégats des contrats survivants sont restaurés, puis les baux,
// biens et clients créés par l'import sont supprimés (enfants avant
// parents). Le lot disparaît en dernier.
func AnnulerImport(db *gorm.DB, lot *models.ImportRecouvrement) (*ResultatAnnulation, error) {
	res := ResultatAnnulation{TotalRembourse: decimal.Zero}

	err := caisse.DansTransaction(db, func(tx *gorm.DB) error {
		var paiements []models.Paiement
		if err := tx.Where("import_id = ?", lot.ID).Find(&paiements).Error; err != nil {
			return err
		}
		paiementIDs := make([]uint, 0, len(paiements))
		for _, p := range paiements {
			paiementIDs = append(paiementIDs, p.ID)
		}

		// Effet net du lot sur la caisse
		var mouvements []models.MouvementCaisse
		if len(paiementIDs) > 0 {
			if err := tx.Where("lien_id IN ? AND categorie IN ?", paiementIDs, categoriesImport).
				Find(&mouvements).Error; err != nil {
				return err
			}
		}
		net := decimal.Zero
		for _, m := range mouvements {
			if m.Sens == models.SensEntree {
				net = net.Add(m.Montant)
			} else {
				net = net.Sub(m.Montant)
			}
		}
		res.TotalRembourse = net

		if !net.IsZero() {
			var solde models.SoldeCaisse
			err := database.PourMiseAJour(tx).First(&solde, "agence_id = ?", lot.AgenceID).Error
			switch {
			case err == nil:
				if err := tx.Model(&solde).Update("solde", solde.Solde.Sub(net)).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				// pas de ligne de solde : le résolveur repliera le journal restant
			default:
				return err
			}
		}

		// Agrégats des contrats survivants
		if err := restaurerAgregats(tx, lot, paiements); err != nil {
			return err
		}

		// Suppressions, enfants avant parents
		if len(paiementIDs) > 0 {
			r := tx.Where("reference_id IN ?", paiementIDs).Delete(&models.Recu{})
			if r.Error != nil {
				return r.Error
			}
			res.Recus = r.RowsAffected

			r = tx.Where("lien_id IN ? AND categorie IN ?", paiementIDs, categoriesImport).
				Delete(&models.MouvementCaisse{})
			if r.Error != nil {
				return r.Error
			}
			res.Mouvements = r.RowsAffected

			r = tx.Where("id IN ?", paiementIDs).Delete(&models.Paiement{})
			if r.Error != nil {
				return r.Error
			}
			res.Paiements = r.RowsAffected
		}

		var locations []models.Location
		if err := tx.Where("import_id = ?", lot.ID).Find(&locations).Error; err != nil {
			return err
		}
		bienIDs := make([]uint, 0, len(locations))
		for _, loc := range locations {
			bienIDs = append(bienIDs, loc.BienID)
		}

		if len(locations) > 0 {
			r := tx.Where("import_id = ?", lot.ID).Delete(&models.Location{})
			if r.Error != nil {
				return r.Error
			}
			res.Locations = r.RowsAffected

			// Les biens pré-existants libérés par la suppression du bail
			// redeviennent libres ; ceux créés par l'import vont être
			// supprimés juste après.
			if err := tx.Model(&models.Bien{}).
				Where("id IN ?", bienIDs).
				Where("NOT EXISTS (SELECT 1 FROM locations WHERE locations.bien_id = biens.id)").
				Update("statut", models.BienLibre).Error; err != nil {
				return err
			}
		}

		r := tx.Where("import_id = ?", lot.ID).
			Where("NOT EXISTS (SELECT 1 FROM locations WHERE locations.bien_id = biens.id)").
			Delete(&models.Bien{})
		if r.Error != nil {
			return r.Error
		}
		res.Biens = r.RowsAffected

		r = tx.Where("import_id = ?", lot.ID).
			Where("NOT EXISTS (SELECT 1 FROM locations WHERE locations.client_id = clients.id)").
			Delete(&models.Client{})
		if r.Error != nil {
			return r.Error
		}
		res.Clients = r.RowsAffected

		return tx.Delete(lot).Error
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// restaurerAgregats remet les colonnes dérivées des contrats survivants
// dans l'état antérieur aux paiements du lot.
func restaurerAgregats(tx *gorm.DB, lot *models.ImportRecouvrement, paiements []models.Paiement) error {
	parLoyer := map[uint]decimal.Decimal{}
	parSouscription := map[uint]decimal.Decimal{}
	for _, p := range paiements {
		switch p.Type {
		case models.PaiementLoyer:
			parLoyer[p.ContratID] = parLoyer[p.ContratID].Add(p.Montant)
		case models.PaiementDroitTerre, models.PaiementSouscription:
			parSouscription[p.ContratID] = parSouscription[p.ContratID].Add(p.Montant)
		}
	}

	for locationID, montant := range parLoyer {
		var location models.Location
		if err := tx.First(&location, "id = ?", locationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		// Les baux créés par l'import vont être supprimés : inutile de
		// restaurer leurs agrégats.
		if location.ImportID != nil && *location.ImportID == lot.ID {
			continue
		}
		if err := tx.Model(&location).Updates(map[string]interface{}{
			"montant_paye": location.MontantPaye.Sub(montant),
			"dette_totale": location.DetteTotale.Add(montant),
		}).Error; err != nil {
			return err
		}
	}

	for souscriptionID, montant := range parSouscription {
		var souscription models.Souscription
		if err := tx.First(&souscription, "id = ?", souscriptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		nouveauPaye := souscription.MontantPaye.Sub(montant)
		nouveauSolde := souscription.SoldeRestant.Add(montant)
		statut := souscription.Statut
		if nouveauSolde.GreaterThan(epsilonMontant) {
			statut = models.SouscriptionEnCours
		}
		if err := tx.Model(&souscription).Updates(map[string]interface{}{
			"montant_paye":  nouveauPaye,
			"solde_restant": nouveauSolde,
			"statut":        statut,
		}).Error; err != nil {
			return err
		}
	}

	return nil
}

// StatistiquesAgent - agrégats de collecte d'un agent recouvreur
type StatistiquesAgent struct {
	AgentID           uint            `json:"agent_id"`
	Nom               string          `json:"nom"`
	TotalVerse        decimal.Decimal `json:"total_verse"`
	NombreVersements  int64           `json:"nombre_versements"`
	MoyenneVersement  decimal.Decimal `json:"moyenne_versement"`
	PlusGrosVersement decimal.Decimal `json:"plus_gros_versement"`
	DernierVersement  *time.Time      `json:"dernier_versement"`
}

// CalculerStatistiquesAgent agrège les paiements rattachés à un agent,
// sur une fenêtre de dates optionnelle.
func CalculerStatistiquesAgent(db *gorm.DB, agenceID, agentID uint, du, au *time.Time) (*StatistiquesAgent, error) {
	var agent models.AgentRecouvreur
	if err := db.First(&agent, "id = ? AND agence_id = ?", agentID, agenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Agent recouvreur introuvable")
		}
		return nil, err
	}

	filtre := func() *gorm.DB {
		q := db.Model(&models.Paiement{}).Where("agent_id = ?", agentID)
		if du != nil {
			q = q.Where("date_paiement >= ?", *du)
		}
		if au != nil {
			q = q.Where("date_paiement < ?", au.AddDate(0, 0, 1))
		}
		return q
	}

	type ligne struct {
		Total  decimal.NullDecimal
		Nombre int64
		Plus   decimal.NullDecimal
	}
	var l ligne
	if err := filtre().Select("SUM(montant) as total, COUNT(*) as nombre, MAX(montant) as plus").
		Scan(&l).Error; err != nil {
		return nil, err
	}

	// la date du dernier versement se lit sur la ligne elle-même : un
	// MAX(date_paiement) agrégé ne se scanne pas de façon portable
	var dernier *time.Time
	var plusRecent models.Paiement
	err := filtre().Order("date_paiement desc, id desc").First(&plusRecent).Error
	switch {
	case err == nil:
		d := plusRecent.DatePaiement
		dernier = &d
	case errors.Is(err, gorm.ErrRecordNotFound):
		// aucun versement sur la fenêtre
	default:
		return nil, err
	}

	stats := StatistiquesAgent{
		AgentID:           agent.ID,
		Nom:               agent.Nom,
		TotalVerse:        decimal.Zero,
		NombreVersements:  l.Nombre,
		MoyenneVersement:  decimal.Zero,
		PlusGrosVersement: decimal.Zero,
		DernierVersement:  dernier,
	}
	if l.Total.Valid {
		stats.TotalVerse = l.Total.Decimal
	}
	if l.Plus.Valid {
		stats.PlusGrosVersement = l.Plus.Decimal
	}
	if l.Nombre > 0 {
		stats.MoyenneVersement = stats.TotalVerse.Div(decimal.NewFromInt(l.Nombre)).Round(2)
	}
	return &stats, nil
}
