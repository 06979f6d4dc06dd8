package frames

import (
	"fmt"

	"github.com/google/uuid"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/models"
)

// LayerStack edits the layer list of a frame. It always holds at least one layer.
type LayerStack struct {
	layers []models.Layer
}

// NewLayerStack wraps layers, creating a default layer when the list is empty.
func NewLayerStack(layers []models.Layer) *LayerStack {
	s := &LayerStack{layers: append([]models.Layer(nil), layers...)}
	if len(s.layers) == 0 {
		s.Add("Layer 1")
	}
	return s
}

func (s *LayerStack) Layers() []models.Layer {
	return append([]models.Layer(nil), s.layers...)
}

func (s *LayerStack) Len() int {
	return len(s.layers)
}

// Add appends a visible, empty layer on top of the stack.
func (s *LayerStack) Add(name string) models.Layer {
	if name == "" {
		name = fmt.Sprintf("Layer %d", len(s.layers)+1)
	}
	layer := models.Layer{ID: uuid.NewString(), Name: name, Visible: true}
	s.layers = append(s.layers, layer)
	return layer
}

func (s *LayerStack) Toggle(id string) (bool, error) {
	i, err := s.index(id)
	if err != nil {
		return false, err
	}
	s.layers[i].Visible = !s.layers[i].Visible
	return s.layers[i].Visible, nil
}

func (s *LayerStack) Rename(id, name string) error {
	if name == "" {
		return apperrors.Invalid("name", "must not be empty")
	}
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.layers[i].Name = name
	return nil
}

// SetData replaces the encoded raster of a layer.
func (s *LayerStack) SetData(id, data string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.layers[i].Data = data
	return nil
}

func (s *LayerStack) Delete(id string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	if len(s.layers) == 1 {
		return apperrors.ErrLastLayer
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	return nil
}

func (s *LayerStack) index(id string) (int, error) {
	for i, l := range s.layers {
		if l.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("layer %s: %w", id, apperrors.ErrNotFound)
}
