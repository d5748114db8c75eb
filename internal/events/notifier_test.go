package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyDiffuseAuxAbonnes(t *testing.T) {
	ch := Subscribe()

	Notify("paiements", "create")

	select {
	case ev := <-ch:
		assert.Equal(t, "paiements", ev.Table)
		assert.Equal(t, "create", ev.Action)
		_, err := uuid.Parse(ev.ID)
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("aucun événement reçu")
	}
}

func TestNotifySansAbonneNeBloquePas(t *testing.T) {
	// personne ne consomme : l'appel doit quand même rendre la main
	termine := make(chan struct{})
	go func() {
		Notify("recus", "create")
		close(termine)
	}()
	select {
	case <-termine:
	case <-time.After(time.Second):
		t.Fatal("Notify a bloqué")
	}
}

func TestAbonneSatureNeBloquePas(t *testing.T) {
	ch := Subscribe()
	// remplit le tampon sans jamais consommer
	for i := 0; i < cap(ch)+5; i++ {
		Notify("mouvement_caisses", "create")
	}
	// le tampon est plein, les événements excédentaires ont été perdus,
	// mais tous les appels ont rendu la main
	require.Len(t, ch, cap(ch))
}
